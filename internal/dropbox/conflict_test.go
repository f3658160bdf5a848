package dropbox

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixedEpoch = 1700000000

func TestArchiveIfOccupied_Free(t *testing.T) {
	dirs := newTestDirs(t)

	err := ArchiveIfOccupied(filepath.Join(dirs.Processed, "report.csv"), filepath.Join(dirs.Error, "report.csv"))
	require.NoError(t, err)

	assert.Empty(t, names(t, dirs.Processed))
	assert.Empty(t, names(t, dirs.Error))
}

func TestArchiveIfOccupied_Occupied(t *testing.T) {
	dirs := newTestDirs(t)
	dest := filepath.Join(dirs.Processed, "report.csv")
	writeFile(t, dest, "stale")

	err := ArchiveIfOccupied(dest, filepath.Join(dirs.Error, "report.csv"))
	require.NoError(t, err)

	assert.NoFileExists(t, dest)
	assert.Equal(t, []string{"report.csv"}, names(t, dirs.Error))
	assert.Equal(t, "stale", readFile(t, filepath.Join(dirs.Error, "report.csv")))
}

func TestMoveToError_OlderArchiveGetsEpochSuffix(t *testing.T) {
	fixClock(t, time.Unix(fixedEpoch, 0))
	dirs := newTestDirs(t)
	errorPath := filepath.Join(dirs.Error, "report.csv")
	writeFile(t, errorPath, "first archive")
	src := filepath.Join(dirs.Processing, "report.csv")
	writeFile(t, src, "second archive")

	got, err := MoveToError(src, errorPath)
	require.NoError(t, err)

	assert.Equal(t, errorPath, got)
	assert.Equal(t, "second archive", readFile(t, errorPath))
	assert.Equal(t, "first archive", readFile(t, errorPath+"."+strconv.Itoa(fixedEpoch)))
	assert.NoFileExists(t, src)
}

func TestMoveToError_SameSecondCollisionsGetCounter(t *testing.T) {
	fixClock(t, time.Unix(fixedEpoch, 0))
	dirs := newTestDirs(t)
	errorPath := filepath.Join(dirs.Error, "report.csv")
	writeFile(t, errorPath, "0")

	for i := 1; i <= 3; i++ {
		src := filepath.Join(dirs.Processing, "report.csv")
		writeFile(t, src, strconv.Itoa(i))
		dest, err := MoveToError(src, errorPath)
		require.NoError(t, err)
		assert.Equal(t, errorPath, dest)
	}

	suffix := errorPath + "." + strconv.Itoa(fixedEpoch)
	assert.Equal(t, "3", readFile(t, errorPath))
	assert.Equal(t, "0", readFile(t, suffix))
	assert.Equal(t, "1", readFile(t, suffix+"-2"))
	assert.Equal(t, "2", readFile(t, suffix+"-3"))
	assert.Len(t, names(t, dirs.Error), 4)
}

func TestMoveToError_ClockBeforeEpoch(t *testing.T) {
	fixClock(t, time.Unix(-10, 0))
	dirs := newTestDirs(t)
	errorPath := filepath.Join(dirs.Error, "report.csv")
	writeFile(t, errorPath, "archived")
	src := filepath.Join(dirs.Processing, "report.csv")
	writeFile(t, src, "new")

	_, err := MoveToError(src, errorPath)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindClock))
	assert.FileExists(t, src, "source must stay put when no archive name can be built")
	assert.Equal(t, "archived", readFile(t, errorPath))
}

func TestMoveToError_MissingSourceIsIOError(t *testing.T) {
	dirs := newTestDirs(t)

	_, err := MoveToError(filepath.Join(dirs.Target, "gone.csv"), filepath.Join(dirs.Error, "gone.csv"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindIO))
}

func TestGenerateFilePaths(t *testing.T) {
	dirs := newTestDirs(t)
	db := resolve(t, dirs)
	src := filepath.Join(db.Target, "report.csv")
	writeFile(t, src, "new")

	plan, err := GenerateFilePaths(db, src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(db.Error, "report.csv"), plan.Error)
	assert.Equal(t, filepath.Join(db.Processing, "report.csv"), plan.Processing)
	assert.Equal(t, filepath.Join(db.Processed, "report.csv"), plan.Processed)
	assert.Empty(t, plan.Evicted)
	assert.FileExists(t, src, "planning must not move the input")
}

func TestGenerateFilePaths_EvacuatesStaleProcessed(t *testing.T) {
	dirs := newTestDirs(t)
	db := resolve(t, dirs)
	writeFile(t, filepath.Join(db.Processed, "report.csv"), "stale")
	src := filepath.Join(db.Target, "report.csv")
	writeFile(t, src, "new")

	plan, err := GenerateFilePaths(db, src)
	require.NoError(t, err)

	assert.NoFileExists(t, plan.Processed)
	assert.Equal(t, "stale", readFile(t, plan.Error))
	assert.Equal(t, plan.Error, plan.Evicted)
}

func TestArchive_ReportsDestination(t *testing.T) {
	db := resolve(t, newTestDirs(t))
	dest := filepath.Join(db.Processing, "report.csv")
	errorPath := filepath.Join(db.Error, "report.csv")

	got, err := Archive(dest, errorPath)
	require.NoError(t, err)
	assert.Empty(t, got, "free slot")

	writeFile(t, dest, "occupant")
	got, err = Archive(dest, errorPath)
	require.NoError(t, err)
	assert.Equal(t, errorPath, got)
	assert.NoFileExists(t, dest)
}

func TestGenerateFilePaths_InvalidSource(t *testing.T) {
	db := resolve(t, newTestDirs(t))

	_, err := GenerateFilePaths(db, "..")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalid))
	assert.Empty(t, names(t, db.Error))
}

func TestClaimAndPromote(t *testing.T) {
	db := resolve(t, newTestDirs(t))
	src := filepath.Join(db.Target, "report.csv")
	writeFile(t, src, "payload")

	plan, err := GenerateFilePaths(db, src)
	require.NoError(t, err)
	require.NoError(t, Claim(plan, src))
	assert.NoFileExists(t, src)
	assert.FileExists(t, plan.Processing)

	dest, err := Promote(db, plan.Processing)
	require.NoError(t, err)
	assert.Equal(t, plan.Processed, dest)
	assert.Equal(t, "payload", readFile(t, dest))
	assert.Empty(t, names(t, db.Processing))
}

func TestClaim_ArchivesLeftoverInProcessing(t *testing.T) {
	db := resolve(t, newTestDirs(t))
	writeFile(t, filepath.Join(db.Processing, "report.csv"), "leftover")
	src := filepath.Join(db.Target, "report.csv")
	writeFile(t, src, "new")

	plan, err := GenerateFilePaths(db, src)
	require.NoError(t, err)
	require.NoError(t, Claim(plan, src))

	assert.Equal(t, "new", readFile(t, plan.Processing))
	assert.Equal(t, "leftover", readFile(t, plan.Error))
}

// Moving files into an error directory never reduces the number of files
// on disk, whatever the number of prior archives with the same name.
func TestMoveToError_NeverLosesFiles_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("every collision lands in a distinct archive file", prop.ForAll(
		func(name string, moves int) bool {
			root, err := os.MkdirTemp("", "dropbox-prop-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(root)

			errorDir := filepath.Join(root, "error")
			workDir := filepath.Join(root, "work")
			if os.Mkdir(errorDir, 0755) != nil || os.Mkdir(workDir, 0755) != nil {
				return false
			}

			for i := 0; i < moves; i++ {
				src := filepath.Join(workDir, name)
				if os.WriteFile(src, []byte(strconv.Itoa(i)), 0644) != nil {
					return false
				}
				if _, err := MoveToError(src, filepath.Join(errorDir, name)); err != nil {
					t.Logf("MoveToError: %v", err)
					return false
				}
			}

			entries, err := os.ReadDir(errorDir)
			return err == nil && len(entries) == moves
		},
		gen.Identifier(),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

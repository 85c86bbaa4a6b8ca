package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepLimit(t *testing.T) {
	tk := Task{ReferenceLength: 8}
	assert.Equal(t, 20, tk.StepLimit(2.5, 0))
	assert.Equal(t, 12, tk.StepLimit(2.5, 12))
	assert.Equal(t, 20, tk.StepLimit(2.5, 40), "max steps only wins when smaller")

	// half-way values round to even
	assert.Equal(t, 2, Task{ReferenceLength: 1}.StepLimit(2.5, 0))
	assert.Equal(t, 8, Task{ReferenceLength: 3}.StepLimit(2.5, 0))
}

func TestDirName(t *testing.T) {
	assert.Equal(t, "007_abc", Task{Number: 7, Identifier: "abc"}.DirName())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("Medium")
	require.NoError(t, err)
	assert.Equal(t, LevelMedium, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelAll, l)

	_, err = ParseLevel("extreme")
	assert.Error(t, err)
}

func TestLoadDatasetAndSelect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	data := `[
	  {"task_id": "a", "confirmed_task": "Find A", "website": "https://a.com/", "level": "easy", "number": 0, "reference_length": 4},
	  {"task_id": "b", "confirmed_task": "Find B", "website": "https://b.com/", "level": "Hard", "number": 1, "reference_length": 9},
	  {"task_id": "c", "confirmed_task": "Find C", "website": "https://c.com/", "level": "easy", "number": 2, "reference_length": 2}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	tasks, err := LoadDataset(path)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, LevelHard, tasks[1].Level)
	assert.Equal(t, "https://b.com/", tasks[1].URL)

	sel, err := Select(tasks, Filter{Level: LevelEasy})
	require.NoError(t, err)
	assert.Len(t, sel, 2)

	sel, err = Select(tasks, Filter{StartIndex: 1})
	require.NoError(t, err)
	assert.Len(t, sel, 2)
	assert.Equal(t, "b", sel[0].Identifier)

	sel, err = Select(tasks, Filter{TaskNumbers: []int{2}})
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, "c", sel[0].Identifier)

	_, err = Select(tasks, Filter{TaskIDs: []string{"a"}, TaskNumbers: []int{1}})
	assert.Error(t, err)

	_, err = Select(tasks, Filter{StartIndex: 10})
	assert.Error(t, err)

	found, ok := FindByID(tasks, "b")
	assert.True(t, ok)
	assert.Equal(t, 1, found.Number)
}

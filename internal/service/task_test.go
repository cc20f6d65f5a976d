package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapi/internal/model"
	"todoapi/internal/pkg/optional"
	"todoapi/internal/store/storetest"
)

// fakeClock 每次调用前进一秒，保证 created_at 严格递增。
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func newTaskService(t *testing.T) *TaskService {
	t.Helper()
	svc := NewTaskService(storetest.Open(t))
	svc.now = newClock().Now
	return svc
}

func ptr[T any](v T) *T { return &v }

func datePtr(year int, month time.Month, day int) *model.Date {
	d := model.NewDate(year, month, day)
	return &d
}

func statusPtr(s model.TaskStatus) *model.TaskStatus { return &s }

func TestTaskService_CreateAndGet(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	in := TaskCreate{
		Title:       "buy milk",
		Description: ptr("2 bottles"),
		DueDate:     datePtr(2025, 3, 1),
		Status:      statusPtr(model.TaskStatusToDo),
		OwnerID:     ptr(int64(7)),
	}
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	assert.Equal(t, in.Title, created.Title)
	assert.Equal(t, "2 bottles", *created.Description)
	assert.Equal(t, "2025-03-01", created.DueDate.String())
	assert.Equal(t, model.TaskStatusToDo, *created.Status)
	assert.Equal(t, int64(7), *created.OwnerID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Title, got.Title)
}

func TestTaskService_CreateMinimal(t *testing.T) {
	svc := newTaskService(t)

	created, err := svc.Create(context.Background(), TaskCreate{Title: "just a title"})
	require.NoError(t, err)
	assert.Nil(t, created.Description)
	assert.Nil(t, created.DueDate)
	assert.Nil(t, created.Status)
	assert.Nil(t, created.OwnerID)
}

func TestTaskService_GetMissingReturnsNil(t *testing.T) {
	svc := newTaskService(t)

	got, err := svc.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskService_ListOrdering(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	mk := func(title string, status model.TaskStatus, due *model.Date) {
		_, err := svc.Create(ctx, TaskCreate{Title: title, Status: statusPtr(status), DueDate: due})
		require.NoError(t, err)
	}
	mk("done early", model.TaskStatusDone, datePtr(2025, 1, 1))
	mk("todo late", model.TaskStatusToDo, datePtr(2025, 6, 1))
	mk("doing early", model.TaskStatusDoing, datePtr(2025, 2, 1))
	mk("todo late newer", model.TaskStatusToDo, datePtr(2025, 6, 1))
	mk("todo no date", model.TaskStatusToDo, nil)
	mk("done later", model.TaskStatusDone, datePtr(2025, 4, 1))

	tasks, err := svc.List(ctx)
	require.NoError(t, err)

	titles := make([]string, 0, len(tasks))
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{
		"doing early",
		"todo late newer",
		"todo late",
		"todo no date",
		"done early",
		"done later",
	}, titles)
}

func TestTaskService_ListEmpty(t *testing.T) {
	svc := newTaskService(t)

	tasks, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskService_ListByOwner(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	for _, in := range []TaskCreate{
		{Title: "mine 1", OwnerID: ptr(int64(1))},
		{Title: "theirs", OwnerID: ptr(int64(2))},
		{Title: "nobody"},
		{Title: "mine 2", OwnerID: ptr(int64(1)), Status: statusPtr(model.TaskStatusDone)},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	tasks, err := svc.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "mine 1", tasks[0].Title)
	assert.Equal(t, "mine 2", tasks[1].Title)

	tasks, err = svc.ListByOwner(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskService_UpdatePartial(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskCreate{
		Title:       "write report",
		Description: ptr("quarterly"),
		DueDate:     datePtr(2025, 5, 1),
		Status:      statusPtr(model.TaskStatusDoing),
		OwnerID:     ptr(int64(3)),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created, TaskUpdate{
		Status: optional.Of(statusPtr(model.TaskStatusDone)),
	})
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatusDone, *updated.Status)
	assert.Equal(t, "write report", updated.Title)
	assert.Equal(t, "quarterly", *updated.Description)
	assert.Equal(t, "2025-05-01", updated.DueDate.String())
	assert.Equal(t, int64(3), *updated.OwnerID)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	// 调用方持有的对象不被修改
	assert.Equal(t, model.TaskStatusDoing, *created.Status)
}

func TestTaskService_UpdateClearsNullableFields(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskCreate{
		Title:       "cleanup",
		Description: ptr("garage"),
		DueDate:     datePtr(2025, 7, 1),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created, TaskUpdate{
		Title:       optional.Of("clean up"),
		Description: optional.Of[*string](nil),
		DueDate:     optional.Of[*model.Date](nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "clean up", updated.Title)
	assert.Nil(t, updated.Description)
	assert.Nil(t, updated.DueDate)
}

func TestTaskService_Delete(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskCreate{Title: "temp"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskService_UpdateDeletedTask(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskCreate{Title: "gone"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created))

	updated, err := svc.Update(ctx, created, TaskUpdate{Title: optional.Of("still gone")})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskmate-bot/taskmate/internal/domain"
	"github.com/taskmate-bot/taskmate/internal/engine"
	"github.com/taskmate-bot/taskmate/internal/repository"
	"github.com/taskmate-bot/taskmate/internal/session"
	"github.com/taskmate-bot/taskmate/internal/task"
	"github.com/taskmate-bot/taskmate/internal/testutil"
	"github.com/taskmate-bot/taskmate/internal/user"
)

func newTasksFixture(t *testing.T) (*Tasks, *testutil.MockTaskRepository, *testutil.MockUserRepository, session.Store) {
	t.Helper()

	taskRepo := &testutil.MockTaskRepository{}
	userRepo := &testutil.MockUserRepository{}
	sessions := session.NewMemoryStore()
	h := NewTasks(task.NewService(taskRepo, nil), user.NewService(userRepo, nil), sessions, nil)

	return h, taskRepo, userRepo, sessions
}

func seedDetailScratch(t *testing.T, sessions session.Store, userID, taskID int64, extra map[string]any) {
	t.Helper()

	scratch := map[string]any{
		"task_id":     taskID,
		"task_status": domain.StatusInProgress,
		"task_name":   "write report",
	}
	for k, v := range extra {
		scratch[k] = v
	}

	require.NoError(t, sessions.SetData(context.Background(), userID, map[string]any{"data": scratch}))
}

func TestCreateTask_RequiresRegistration(t *testing.T) {
	h, _, userRepo, sessions := newTasksFixture(t)
	userRepo.On("FindByTelegramID", mock.Anything, int64(1)).Return(nil, repository.ErrNotFound)

	c := testutil.NewFakeContext(1, "/create_task")
	require.NoError(t, h.CreateTask(c))

	assert.Equal(t, engine.MsgSignUpFirst, c.LastSent())
	_, err := sessions.GetState(context.Background(), 1)
	assert.ErrorIs(t, err, session.ErrStateNotFound)
}

func TestCreateTask_EntersNameStep(t *testing.T) {
	h, _, userRepo, sessions := newTasksFixture(t)
	userRepo.On("FindByTelegramID", mock.Anything, int64(1)).Return(&domain.User{TelegramID: 1}, nil)

	c := testutil.NewFakeContext(1, "/create_task")
	require.NoError(t, h.CreateTask(c))

	assert.Equal(t, "Enter the name of the task (length maximum 50 characters):", c.LastSent())
	state, err := sessions.GetState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingName, state)
}

func TestTaskName_TooLongRepromptsWithoutTransition(t *testing.T) {
	h, _, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 1, StateWaitingName))

	c := testutil.NewFakeContext(1, strings.Repeat("x", 51))
	assert.Error(t, h.TaskName(c))

	state, err := sessions.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingName, state)
}

func TestTaskName_AdvancesToDescription(t *testing.T) {
	h, _, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 1, StateWaitingName))

	c := testutil.NewFakeContext(1, "write report")
	require.NoError(t, h.TaskName(c))

	assert.Equal(t, "Enter a description of the task:", c.LastSent())

	state, err := sessions.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingDescription, state)

	data, err := sessions.GetData(ctx, 1)
	require.NoError(t, err)
	name, _ := session.String(data, "task_name")
	assert.Equal(t, "write report", name)
}

func TestTaskDescription_CreatesAndLeavesFlow(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 1, StateWaitingDescription))
	require.NoError(t, sessions.SetData(ctx, 1, map[string]any{"task_name": "write report"}))

	taskRepo.On("Create", mock.Anything, mock.MatchedBy(func(task *domain.Task) bool {
		return task.TelegramID == 1 &&
			task.Name == "write report" &&
			task.Description == "quarterly numbers" &&
			task.Status == domain.StatusInProgress
	})).Return(nil)

	c := testutil.NewFakeContext(1, "quarterly numbers")
	require.NoError(t, h.TaskDescription(c))

	assert.Equal(t, "Task ‘write report’ has been successfully created!", c.LastSent())
	_, err := sessions.GetState(ctx, 1)
	assert.ErrorIs(t, err, session.ErrStateNotFound)
	taskRepo.AssertExpectations(t)
}

func TestMyTasks_EmptyList(t *testing.T) {
	h, taskRepo, _, _ := newTasksFixture(t)
	taskRepo.On("ListByOwner", mock.Anything, int64(1)).Return(nil, nil)

	c := testutil.NewFakeContext(1, "/my_tasks")
	require.NoError(t, h.MyTasks(c))

	assert.Equal(t, "You don't have any tasks yet.", c.LastSent())
}

func TestMyTasks_ClearsStaleFlowState(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 1, StateWaitingName))
	taskRepo.On("ListByOwner", mock.Anything, int64(1)).Return([]domain.Task{{ID: 1, Name: "one"}}, nil)

	c := testutil.NewFakeContext(1, "/my_tasks")
	require.NoError(t, h.MyTasks(c))

	assert.Equal(t, "Your tasks:", c.LastSent())
	_, err := sessions.GetState(ctx, 1)
	assert.ErrorIs(t, err, session.ErrStateNotFound)
}

func TestMyTasksAction_RejectsBadPage(t *testing.T) {
	h, _, _, _ := newTasksFixture(t)

	c := testutil.NewFakeCallback(1, "my_tasks:abc")
	assert.Error(t, h.MyTasksAction(c, "abc"))
}

func TestDetailTask_StashesTaskAndMarksReturnState(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	taskRepo.On("FindByID", mock.Anything, int64(7)).Return(&domain.Task{
		ID:     7,
		Name:   "write report",
		Status: domain.StatusInProgress,
	}, nil)

	c := testutil.NewFakeCallback(1, "detail_task:7")
	require.NoError(t, h.DetailTask(c, "7"))

	assert.Equal(t, "Select action for `write report`:", c.LastSent())

	state, err := sessions.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "my_tasks:0", state)

	data, err := sessions.GetData(ctx, 1)
	require.NoError(t, err)
	scratch := session.Child(data, "data")
	require.NotNil(t, scratch)
	taskID, ok := session.Int64(scratch, "task_id")
	require.True(t, ok)
	assert.Equal(t, int64(7), taskID)
}

func TestChooseStatus_MarksDetailReturnState(t *testing.T) {
	h, _, _, sessions := newTasksFixture(t)
	seedDetailScratch(t, sessions, 1, 7, nil)

	c := testutil.NewFakeCallback(1, "choose_task_status")
	require.NoError(t, h.ChooseStatus(c, ""))

	assert.Equal(t, "Select a status:", c.LastSent())
	state, err := sessions.GetState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "detail_task:7", state)
}

func TestChooseData_RejectsUnknownField(t *testing.T) {
	h, _, _, sessions := newTasksFixture(t)
	seedDetailScratch(t, sessions, 1, 7, nil)

	c := testutil.NewFakeCallback(1, "choose_task_data:status")
	assert.Error(t, h.ChooseData(c, "status"))
}

func TestChooseData_EntersFieldEditState(t *testing.T) {
	h, _, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	seedDetailScratch(t, sessions, 1, 7, nil)

	c := testutil.NewFakeCallback(1, "choose_task_data:name")
	require.NoError(t, h.ChooseData(c, "name"))

	assert.Equal(t, "Enter a new name for the task.", c.LastSent())

	state, err := sessions.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateChangeName, state)

	data, err := sessions.GetData(ctx, 1)
	require.NoError(t, err)
	field, _ := session.String(session.Child(data, "data"), "field")
	assert.Equal(t, "name", field)
}

func TestChangeTaskField_UpdatesAndLeavesFlow(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 1, StateChangeName))
	seedDetailScratch(t, sessions, 1, 7, map[string]any{"field": "name"})

	taskRepo.On("UpdateField", mock.Anything, int64(7), "name", "new name").Return(true, nil)

	c := testutil.NewFakeContext(1, "new name")
	require.NoError(t, h.ChangeTaskField(c))

	require.Len(t, c.Sent, 2)
	assert.Equal(t, "You changed the name of task `new name`", c.Sent[0])
	assert.Equal(t, engine.MsgChooseAction, c.Sent[1])

	_, err := sessions.GetState(ctx, 1)
	assert.ErrorIs(t, err, session.ErrStateNotFound)
}

func TestChangeTaskField_RevalidatesNameBound(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 1, StateChangeName))
	seedDetailScratch(t, sessions, 1, 7, map[string]any{"field": "name"})

	c := testutil.NewFakeContext(1, strings.Repeat("x", 51))
	assert.Error(t, h.ChangeTaskField(c))

	state, err := sessions.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateChangeName, state)
	taskRepo.AssertNotCalled(t, "UpdateField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStatus_UpdatesAndLeavesFlow(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	seedDetailScratch(t, sessions, 1, 7, nil)

	taskRepo.On("UpdateField", mock.Anything, int64(7), "status", domain.StatusDone).Return(true, nil)

	c := testutil.NewFakeCallback(1, "change_task_status:DONE")
	require.NoError(t, h.ChangeStatus(c, domain.StatusDone))

	require.Len(t, c.Sent, 2)
	assert.Equal(t, "Task `write report` has successfully updated the status on DONE.", c.Sent[0])
	assert.Equal(t, engine.MsgChooseAction, c.Sent[1])
}

func TestDeleteTask_AsksForConfirmation(t *testing.T) {
	h, _, _, sessions := newTasksFixture(t)
	seedDetailScratch(t, sessions, 1, 7, nil)

	c := testutil.NewFakeCallback(1, "delete_task")
	require.NoError(t, h.DeleteTask(c, ""))

	assert.Equal(t, "Are you sure you want to delete the task?", c.LastSent())
	state, err := sessions.GetState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "detail_task:7", state)
}

func TestConfirmDeletion_Deletes(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	seedDetailScratch(t, sessions, 1, 7, nil)

	taskRepo.On("Delete", mock.Anything, int64(7)).Return(true, nil)

	c := testutil.NewFakeCallback(1, "confirm_deletion")
	require.NoError(t, h.ConfirmDeletion(c, ""))

	require.Len(t, c.Sent, 2)
	assert.Equal(t, "Task `write report` successfully deleted.", c.Sent[0])
	assert.Equal(t, engine.MsgChooseAction, c.Sent[1])
	taskRepo.AssertExpectations(t)
}

func TestConfirmDeletion_MissingScratchIsGracefulNoOp(t *testing.T) {
	h, taskRepo, _, _ := newTasksFixture(t)

	c := testutil.NewFakeCallback(1, "confirm_deletion")
	require.NoError(t, h.ConfirmDeletion(c, ""))

	assert.Equal(t, engine.MsgChooseAction, c.LastSent())
	taskRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestBackFromDescriptionRewindsToNameStep(t *testing.T) {
	h, _, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	eng := engine.New(sessions, nil, nil)
	h.Register(eng)

	require.NoError(t, sessions.SetState(ctx, 1, StateWaitingDescription))
	require.NoError(t, sessions.SetData(ctx, 1, map[string]any{"task_name": "write report"}))

	c := testutil.NewFakeCallback(1, "back_stage")
	require.NoError(t, eng.BackStage(c))

	assert.Equal(t, "Enter the name of the task (length maximum 50 characters):", c.LastSent())
	state, err := sessions.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingName, state)

	data, err := sessions.GetData(ctx, 1)
	require.NoError(t, err)
	name, _ := session.String(data, "task_name")
	assert.Equal(t, "write report", name)
}

func TestBackFromDetailViewRedispatchesToList(t *testing.T) {
	h, taskRepo, _, sessions := newTasksFixture(t)
	ctx := context.Background()
	eng := engine.New(sessions, nil, nil)
	h.Register(eng)

	require.NoError(t, sessions.SetState(ctx, 1, "my_tasks:0"))
	taskRepo.On("ListByOwner", mock.Anything, int64(1)).Return([]domain.Task{{ID: 1, Name: "one"}}, nil)

	c := testutil.NewFakeCallback(1, "back_stage")
	require.NoError(t, eng.BackStage(c))

	assert.Equal(t, "Your tasks:", c.LastSent())
}

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/bot/keyboard"
	"github.com/taskmate-bot/taskmate/internal/engine"
	apperrors "github.com/taskmate-bot/taskmate/internal/errors"
	"github.com/taskmate-bot/taskmate/internal/session"
	"github.com/taskmate-bot/taskmate/internal/task"
	"github.com/taskmate-bot/taskmate/internal/user"
)

// Task flow states. The field-edit states are looked up through
// task.EditableFields so the choose_task_data params stay in sync.
const (
	StateWaitingName        = "waiting_for_name"
	StateWaitingDescription = "waiting_for_description"
	StateChangeName         = "change_task_name"
	StateChangeDescription  = "change_task_description"
)

// stateDetailView marks the task detail view. The token doubles as an
// encoded action so Back from the detail view redispatches to the list.
const stateDetailView = keyboard.ActionMyTasks + keyboard.Separator + "0"

// createTaskSteps is the ordered step list of the creation flow; Back
// rewinds along it.
var createTaskSteps = []string{StateWaitingName, StateWaitingDescription}

var createTaskPrompts = map[string]string{
	StateWaitingName:        "Enter the name of the task (length maximum 50 characters):",
	StateWaitingDescription: "Enter a description of the task:",
}

// Tasks implements the task management flow.
type Tasks struct {
	tasks    *task.Service
	users    *user.Service
	sessions session.Store
	log      *slog.Logger
}

// NewTasks wires the task flow dependencies.
func NewTasks(tasks *task.Service, users *user.Service, sessions session.Store, log *slog.Logger) *Tasks {
	if log == nil {
		log = slog.Default()
	}

	return &Tasks{
		tasks:    tasks,
		users:    users,
		sessions: sessions,
		log:      log,
	}
}

// Register installs the flow's states and actions into the engine.
func (h *Tasks) Register(eng *engine.Engine) {
	eng.RegisterText(StateWaitingName, h.TaskName)
	eng.RegisterText(StateWaitingDescription, h.TaskDescription)
	eng.RegisterText(StateChangeName, h.ChangeTaskField)
	eng.RegisterText(StateChangeDescription, h.ChangeTaskField)

	eng.RegisterAction(keyboard.ActionMyTasks, h.MyTasksAction)
	eng.RegisterAction(keyboard.ActionDetailTask, h.DetailTask)
	eng.RegisterAction(keyboard.ActionChooseStatus, h.ChooseStatus)
	eng.RegisterAction(keyboard.ActionChooseData, h.ChooseData)
	eng.RegisterAction(keyboard.ActionChangeStatus, h.ChangeStatus)
	eng.RegisterAction(keyboard.ActionDeleteTask, h.DeleteTask)
	eng.RegisterAction(keyboard.ActionConfirmDeletion, h.ConfirmDeletion)
	eng.RegisterAction(keyboard.ActionBackStage, func(c telebot.Context, _ string) error {
		return eng.BackStage(c)
	})
	eng.RegisterAction(keyboard.ActionCancelTask, func(c telebot.Context, _ string) error {
		return eng.Cancel(c)
	})

	eng.RegisterLinearFlow(createTaskSteps, h.RenderCreateStep)
}

// CreateTask handles /create_task and enters the linear creation flow.
func (h *Tasks) CreateTask(c telebot.Context) error {
	userID := c.Sender().ID
	ctx := context.Background()

	if !h.users.IsRegistered(ctx, userID) {
		return c.Send(engine.MsgSignUpFirst)
	}

	if err := h.sessions.SetState(ctx, userID, StateWaitingName); err != nil {
		h.log.Error("failed to enter task creation", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return h.RenderCreateStep(c, StateWaitingName)
}

// RenderCreateStep re-sends the prompt for a creation step; used on entry
// and by back navigation.
func (h *Tasks) RenderCreateStep(c telebot.Context, state string) error {
	markup := keyboard.Cancel()
	if state == StateWaitingDescription {
		markup = keyboard.CancelBack()
	}

	return c.Send(createTaskPrompts[state], markup)
}

// TaskName validates the name bound and advances to the description step.
func (h *Tasks) TaskName(c telebot.Context) error {
	userID := c.Sender().ID
	ctx := context.Background()
	name := c.Text()

	if err := task.ValidateName(name); err != nil {
		// Re-prompt; the state stays on the name step.
		return err
	}

	if err := h.sessions.SetData(ctx, userID, map[string]any{"task_name": name}); err != nil {
		h.log.Error("failed to stash task name", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	if err := h.sessions.SetState(ctx, userID, StateWaitingDescription); err != nil {
		h.log.Error("failed to advance task creation", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return h.RenderCreateStep(c, StateWaitingDescription)
}

// TaskDescription completes the creation flow and persists the task.
func (h *Tasks) TaskDescription(c telebot.Context) error {
	userID := c.Sender().ID
	ctx := context.Background()

	data, err := h.sessions.GetData(ctx, userID)
	if err != nil {
		h.log.Error("failed to read creation scratch", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	name, _ := session.String(data, "task_name")

	if err := h.tasks.Create(ctx, userID, name, c.Text()); err != nil {
		return err
	}

	if err := h.sessions.Clear(ctx, userID); err != nil {
		h.log.Error("failed to leave task creation", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send(fmt.Sprintf("Task ‘%s’ has been successfully created!", name))
}

// MyTasks handles the /my_tasks command with the first page.
func (h *Tasks) MyTasks(c telebot.Context) error {
	return h.renderTaskList(c, 0)
}

// MyTasksAction handles list navigation buttons carrying a page parameter.
func (h *Tasks) MyTasksAction(c telebot.Context, param string) error {
	page := 0
	if param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil {
			return apperrors.NewStateError(fmt.Sprintf("bad page parameter %q", param))
		}
		page = parsed
	}

	return h.renderTaskList(c, page)
}

// renderTaskList clears any stray flow state and renders one page.
func (h *Tasks) renderTaskList(c telebot.Context, page int) error {
	userID := c.Sender().ID
	ctx := context.Background()

	if err := h.sessions.Clear(ctx, userID); err != nil {
		h.log.Error("failed to clear session before listing", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	tasks, err := h.tasks.List(ctx, userID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	if len(tasks) == 0 {
		return c.Send("You don't have any tasks yet.")
	}

	onPage, hasPrev, hasNext := task.Page(tasks, page)
	return c.Send("Your tasks:", keyboard.TaskList(onPage, page, hasPrev, hasNext))
}

// DetailTask loads one task, stashes its identity into scratch for the
// sub-flows, and enters the detail view.
func (h *Tasks) DetailTask(c telebot.Context, param string) error {
	userID := c.Sender().ID
	ctx := context.Background()

	taskID, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return apperrors.NewStateError(fmt.Sprintf("bad task id %q", param))
	}

	t, err := h.tasks.Get(ctx, taskID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	if err := h.sessions.SetState(ctx, userID, stateDetailView); err != nil {
		h.log.Error("failed to enter detail view", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	if err := h.sessions.SetData(ctx, userID, map[string]any{
		"data": map[string]any{
			"task_id":     t.ID,
			"task_status": t.Status,
			"task_name":   t.Name,
		},
	}); err != nil {
		h.log.Error("failed to stash task detail", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send(fmt.Sprintf("Select action for `%s`:", t.Name), keyboard.TaskDetail())
}

// ChooseStatus offers every status except the current one.
func (h *Tasks) ChooseStatus(c telebot.Context, _ string) error {
	userID := c.Sender().ID
	ctx := context.Background()

	scratch := h.taskScratch(ctx, userID)
	taskID, ok := session.Int64(scratch, "task_id")
	if !ok {
		return h.leaveFlow(c)
	}

	status, _ := session.String(scratch, "task_status")

	// Back from the status picker returns to the detail view.
	detailState := keyboard.ActionDetailTask + keyboard.Separator + strconv.FormatInt(taskID, 10)
	if err := h.sessions.SetState(ctx, userID, detailState); err != nil {
		h.log.Error("failed to mark status picker state", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send("Select a status:", keyboard.StatusSelect(task.StatusChoices(status)))
}

// ChooseData stashes the target field and enters the shared field-edit state.
func (h *Tasks) ChooseData(c telebot.Context, param string) error {
	userID := c.Sender().ID
	ctx := context.Background()

	editState, ok := task.EditableFields[param]
	if !ok {
		return apperrors.NewStateError(fmt.Sprintf("field %q is not editable", param))
	}

	data, err := h.sessions.GetData(ctx, userID)
	if err != nil {
		h.log.Error("failed to read detail scratch", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	scratch := session.Child(data, "data")
	if scratch == nil {
		return h.leaveFlow(c)
	}

	scratch["field"] = param
	data["data"] = scratch
	if err := h.sessions.SetData(ctx, userID, data); err != nil {
		h.log.Error("failed to stash edit target", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	if err := h.sessions.SetState(ctx, userID, editState); err != nil {
		h.log.Error("failed to enter field edit", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send(fmt.Sprintf("Enter a new %s for the task.", param), keyboard.Cancel())
}

// ChangeTaskField is the shared text handler for editing name and
// description; the name bound is re-validated before writing.
func (h *Tasks) ChangeTaskField(c telebot.Context) error {
	userID := c.Sender().ID
	ctx := context.Background()
	value := c.Text()

	scratch := h.taskScratch(ctx, userID)
	taskID, idOK := session.Int64(scratch, "task_id")
	field, fieldOK := session.String(scratch, "field")
	if !idOK || !fieldOK {
		return h.leaveFlow(c)
	}

	if field == "name" {
		if err := task.ValidateName(value); err != nil {
			// Re-prompt; the state stays on the edit step.
			return err
		}
	}

	updated, err := h.tasks.UpdateField(ctx, taskID, field, value)
	if err != nil || !updated {
		if err != nil {
			h.log.Error("failed to update task field", slog.Int64("task_id", taskID), slog.String("field", field), slog.Any("error", err))
		}
		if sendErr := c.Send(apperrors.GenericUserMessage); sendErr != nil {
			return sendErr
		}
		return h.leaveFlow(c)
	}

	h.log.Info("task field updated", slog.Int64("user_id", userID), slog.Int64("task_id", taskID), slog.String("field", field))
	if err := c.Send(fmt.Sprintf("You changed the %s of task `%s`", field, value)); err != nil {
		return err
	}

	return h.leaveFlow(c)
}

// ChangeStatus writes the selected status and returns to idle.
func (h *Tasks) ChangeStatus(c telebot.Context, param string) error {
	userID := c.Sender().ID
	ctx := context.Background()

	scratch := h.taskScratch(ctx, userID)
	taskID, ok := session.Int64(scratch, "task_id")
	if !ok {
		return h.leaveFlow(c)
	}

	name, _ := session.String(scratch, "task_name")

	updated, err := h.tasks.UpdateStatus(ctx, taskID, param)
	if err != nil || !updated {
		if err != nil {
			h.log.Error("failed to update task status", slog.Int64("task_id", taskID), slog.Any("error", err))
		}
		if sendErr := c.Send(apperrors.GenericUserMessage); sendErr != nil {
			return sendErr
		}
		return h.leaveFlow(c)
	}

	h.log.Info("task status updated", slog.Int64("user_id", userID), slog.Int64("task_id", taskID), slog.String("status", param))
	if err := c.Send(fmt.Sprintf("Task `%s` has successfully updated the status on %s.", name, param)); err != nil {
		return err
	}

	return h.leaveFlow(c)
}

// DeleteTask asks for confirmation before the physical delete.
func (h *Tasks) DeleteTask(c telebot.Context, _ string) error {
	userID := c.Sender().ID
	ctx := context.Background()

	scratch := h.taskScratch(ctx, userID)
	taskID, ok := session.Int64(scratch, "task_id")
	if !ok {
		return h.leaveFlow(c)
	}

	// Back from the confirmation returns to the detail view.
	detailState := keyboard.ActionDetailTask + keyboard.Separator + strconv.FormatInt(taskID, 10)
	if err := h.sessions.SetState(ctx, userID, detailState); err != nil {
		h.log.Error("failed to mark deletion state", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send("Are you sure you want to delete the task?", keyboard.ConfirmDelete())
}

// ConfirmDeletion physically removes the task. Arriving here without a task
// id in scratch is a graceful no-op back to the menu.
func (h *Tasks) ConfirmDeletion(c telebot.Context, _ string) error {
	userID := c.Sender().ID
	ctx := context.Background()

	scratch := h.taskScratch(ctx, userID)
	taskID, ok := session.Int64(scratch, "task_id")
	if !ok {
		return h.leaveFlow(c)
	}

	name, _ := session.String(scratch, "task_name")

	deleted, err := h.tasks.Delete(ctx, taskID)
	if err != nil || !deleted {
		if err != nil {
			h.log.Error("failed to delete task", slog.Int64("task_id", taskID), slog.Any("error", err))
		}
		if sendErr := c.Send(apperrors.GenericUserMessage); sendErr != nil {
			return sendErr
		}
		return h.leaveFlow(c)
	}

	h.log.Info("task deleted", slog.Int64("user_id", userID), slog.Int64("task_id", taskID))
	if err := c.Send(fmt.Sprintf("Task `%s` successfully deleted.", name)); err != nil {
		return err
	}

	return h.leaveFlow(c)
}

// taskScratch returns the nested task scratch map, or nil when absent.
func (h *Tasks) taskScratch(ctx context.Context, userID int64) map[string]any {
	data, err := h.sessions.GetData(ctx, userID)
	if err != nil {
		h.log.Error("failed to read task scratch", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return session.Child(data, "data")
}

// leaveFlow clears the session and sends the idle prompt.
func (h *Tasks) leaveFlow(c telebot.Context) error {
	userID := c.Sender().ID
	if err := h.sessions.Clear(context.Background(), userID); err != nil {
		h.log.Error("failed to clear session", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send(engine.MsgChooseAction)
}

package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/domain"
)

// Action names carried in callback payloads. These strings are the wire
// vocabulary between buttons and the action dispatch table.
const (
	ActionMyTasks         = "my_tasks"
	ActionCancelTask      = "cancel_task"
	ActionBackStage       = "back_stage"
	ActionDetailTask      = "detail_task"
	ActionChooseStatus    = "choose_task_status"
	ActionChooseData      = "choose_task_data"
	ActionChangeStatus    = "change_task_status"
	ActionDeleteTask      = "delete_task"
	ActionConfirmDeletion = "confirm_deletion"
)

func cancelButton() telebot.InlineButton {
	return telebot.InlineButton{Text: "Cancel", Data: ActionCancelTask}
}

func backButton() telebot.InlineButton {
	return telebot.InlineButton{Text: "Back", Data: ActionBackStage}
}

func markup(rows ...[]telebot.InlineButton) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: rows}
}

// Cancel builds the single-row cancel keyboard shown on plain prompts.
func Cancel() *telebot.ReplyMarkup {
	return markup([]telebot.InlineButton{cancelButton()})
}

// CancelBack builds the cancel keyboard with a Back row underneath.
func CancelBack() *telebot.ReplyMarkup {
	return markup(
		[]telebot.InlineButton{cancelButton()},
		[]telebot.InlineButton{backButton()},
	)
}

// TaskList renders one page of task buttons (two per row) with Cancel on
// top and Previous/Next only where the neighbouring page exists.
func TaskList(tasks []domain.Task, page int, hasPrev, hasNext bool) *telebot.ReplyMarkup {
	buttons := make([]telebot.InlineButton, 0, len(tasks))
	for _, task := range tasks {
		buttons = append(buttons, telebot.InlineButton{
			Text: task.Name,
			Data: fmt.Sprintf("%s%s%d", ActionDetailTask, Separator, task.ID),
		})
	}

	rows := Chunk(buttons, 2)
	rows = append([][]telebot.InlineButton{{cancelButton()}}, rows...)

	var navigation []telebot.InlineButton
	if hasPrev {
		navigation = append(navigation, telebot.InlineButton{
			Text: "Previous",
			Data: fmt.Sprintf("%s%s%d", ActionMyTasks, Separator, page-1),
		})
	}
	if hasNext {
		navigation = append(navigation, telebot.InlineButton{
			Text: "Next",
			Data: fmt.Sprintf("%s%s%d", ActionMyTasks, Separator, page+1),
		})
	}

	if len(navigation) > 0 {
		rows = append(rows, navigation)
	}

	return markup(rows...)
}

// TaskDetail renders the per-task action menu.
func TaskDetail() *telebot.ReplyMarkup {
	return markup(
		[]telebot.InlineButton{cancelButton()},
		[]telebot.InlineButton{backButton()},
		[]telebot.InlineButton{{Text: "Change task name", Data: ActionChooseData + Separator + "name"}},
		[]telebot.InlineButton{{Text: "Change task description", Data: ActionChooseData + Separator + "description"}},
		[]telebot.InlineButton{{Text: "Change task status", Data: ActionChooseStatus}},
		[]telebot.InlineButton{{Text: "Delete tasks", Data: ActionDeleteTask}},
	)
}

// StatusSelect renders one button per offered status choice below the
// Cancel and Back rows.
func StatusSelect(choices []domain.StatusChoice) *telebot.ReplyMarkup {
	rows := [][]telebot.InlineButton{
		{cancelButton()},
		{backButton()},
	}

	for _, choice := range choices {
		rows = append(rows, []telebot.InlineButton{{
			Text: choice.Label,
			Data: ActionChangeStatus + Separator + choice.Value,
		}})
	}

	return markup(rows...)
}

// ConfirmDelete renders the two-step deletion confirmation keyboard.
func ConfirmDelete() *telebot.ReplyMarkup {
	return markup(
		[]telebot.InlineButton{cancelButton()},
		[]telebot.InlineButton{backButton()},
		[]telebot.InlineButton{{Text: "Yes, delete it.", Data: ActionConfirmDeletion}},
	)
}

// Chunk groups buttons into rows of at most size.
func Chunk(buttons []telebot.InlineButton, size int) [][]telebot.InlineButton {
	if size < 1 {
		size = 1
	}

	var rows [][]telebot.InlineButton
	for start := 0; start < len(buttons); start += size {
		end := start + size
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[start:end])
	}

	return rows
}

package conversation

import (
	"fmt"
	"strings"

	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

type Field string

const (
	FieldName        Field = "name"
	FieldDeadline    Field = "deadline"
	FieldDescription Field = "description"
)

var fieldSelectors = map[string]Field{
	"1": FieldName,
	"2": FieldDeadline,
	"3": FieldDescription,
}

// Label is the field name shown in the confirmation message.
func (f Field) Label() string {
	switch f {
	case FieldName:
		return "Nama"
	case FieldDeadline:
		return "Deadline"
	case FieldDescription:
		return "Deskripsi"
	default:
		return string(f)
	}
}

func (f Field) prompt() string {
	switch f {
	case FieldName:
		return "Nama baru"
	case FieldDeadline:
		return "Deadline baru (format: YYYY-MM-DD HH:MM atau YYYY-MM-DD)"
	default:
		return "Deskripsi baru"
	}
}

type EditState int

const (
	ChooseField EditState = iota + 1
	InputValue
)

func (s EditState) String() string {
	switch s {
	case ChooseField:
		return "choose_field"
	case InputValue:
		return "input_value"
	default:
		return "unknown"
	}
}

type EditFlow struct {
	TaskID   string
	TaskName string
	State    EditState
	Field    Field
}

// StartEdit opens the edit flow for a single matched task.
func StartEdit(task tasks.Task) (*EditFlow, []Effect) {
	desc := task.Description
	if strings.TrimSpace(desc) == "" {
		desc = "—"
	}
	f := &EditFlow{TaskID: task.ID, TaskName: task.Name, State: ChooseField}
	return f, []Effect{show(protocol.Embed{
		Title: "✏️ Edit: " + task.Name,
		Description: fmt.Sprintf("📅 Deadline: %s\n📝 Deskripsi: %s\n\nMau edit apa?\n`1` — Nama\n`2` — Deadline\n`3` — Deskripsi",
			protocol.HumanDeadline(task.Deadline), desc),
		Color:  colorInfo,
		Footer: "Ketik nomor pilihanmu, atau 'batal' untuk membatalkan",
	})}
}

// Next consumes one reply. At ChooseField only the selectors 1, 2 and 3
// advance; anything else re-prompts, and ends the flow when it contains the
// cancel keyword. At InputValue a deadline must parse in one of the accepted
// layouts, otherwise the flow stays put.
func (f EditFlow) Next(input string) (*EditFlow, []Effect) {
	switch f.State {
	case ChooseField:
		choice := strings.ToLower(strings.TrimSpace(input))
		field, ok := fieldSelectors[choice]
		if !ok {
			if strings.Contains(choice, cancelKeyword) {
				return nil, []Effect{say(msgChooseField)}
			}
			return &f, []Effect{say(msgChooseField)}
		}
		next := f
		next.State = InputValue
		next.Field = field
		return &next, []Effect{say(fmt.Sprintf("✏️ **%s:**", field.prompt()))}

	case InputValue:
		value := strings.TrimSpace(input)
		var patch tasks.Patch
		switch f.Field {
		case FieldDeadline:
			d, err := tasks.NormalizeDeadline(value)
			if err != nil {
				return &f, []Effect{say(msgBadDeadline)}
			}
			patch.Deadline = &d
		case FieldName:
			if value == "" {
				return &f, []Effect{say(msgEmptyName)}
			}
			patch.Name = &value
		default:
			patch.Description = &value
		}
		return nil, []Effect{PatchTask{ID: f.TaskID, Name: f.TaskName, Field: f.Field, Patch: patch}}
	}
	return nil, nil
}

// UpdatedReply is the confirmation shown after a successful edit.
func UpdatedReply(field Field, name string) protocol.Reply {
	return protocol.EmbedReply(protocol.Embed{
		Title:       "✅ Tugas Diperbarui!",
		Description: fmt.Sprintf("**%s** tugas **%s** berhasil diubah.", field.Label(), name),
		Color:       colorSuccess,
	})
}

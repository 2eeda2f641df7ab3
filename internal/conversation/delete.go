package conversation

import (
	"fmt"

	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

type DeleteState int

const (
	AwaitFirstConfirm DeleteState = iota + 1
	AwaitSecondConfirm
)

func (s DeleteState) String() string {
	switch s {
	case AwaitFirstConfirm:
		return "await_first_confirm"
	case AwaitSecondConfirm:
		return "await_second_confirm"
	default:
		return "unknown"
	}
}

type DeleteFlow struct {
	TaskID   string
	TaskName string
	State    DeleteState
}

// StartDelete opens the confirmation flow for a single matched task.
func StartDelete(task tasks.Task) (*DeleteFlow, []Effect) {
	f := &DeleteFlow{TaskID: task.ID, TaskName: task.Name, State: AwaitFirstConfirm}
	return f, []Effect{show(protocol.Embed{
		Title:       "🗑️ Konfirmasi Ke-1",
		Description: fmt.Sprintf("Mau hapus tugas ini?\n\n**%s**\n📅 %s", task.Name, protocol.HumanDeadline(task.Deadline)),
		Color:       colorDanger,
		Footer:      "Balas 'ya' untuk lanjut, atau 'tidak' untuk batal",
	})}
}

// Next consumes one reply. Any non-affirmative reply cancels; two
// consecutive affirmatives delete.
func (f DeleteFlow) Next(input string) (*DeleteFlow, []Effect) {
	if !IsAffirmative(input) {
		return nil, []Effect{say(msgDeleteCancelled)}
	}
	switch f.State {
	case AwaitFirstConfirm:
		next := f
		next.State = AwaitSecondConfirm
		return &next, []Effect{show(protocol.Embed{
			Title:       "⚠️ Konfirmasi Ke-2",
			Description: fmt.Sprintf("Yakin **bener-bener** udah selesai?\n\n**%s**", f.TaskName),
			Color:       colorWarning,
			Footer:      "Balas 'ya' untuk hapus permanen, atau 'tidak' untuk batal",
		})}
	case AwaitSecondConfirm:
		return nil, []Effect{DeleteTask{ID: f.TaskID, Name: f.TaskName}}
	default:
		return nil, []Effect{say(msgDeleteCancelled)}
	}
}

// DeletedReply is the confirmation shown after a successful delete.
func DeletedReply(name string) protocol.Reply {
	return protocol.EmbedReply(protocol.Embed{
		Title:       "✅ Tugas Selesai!",
		Description: fmt.Sprintf("**%s** dihapus. Good job! 🎉", name),
		Color:       colorSuccess,
	})
}

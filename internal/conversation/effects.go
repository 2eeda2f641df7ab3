// Package conversation holds the multi-message flows an actor can be in the
// middle of: two-step delete confirmation and field editing. Transitions are
// pure; they return the next state (nil when the flow ends) and a list of
// effects that the caller applies against the store and transport.
package conversation

import (
	"strings"

	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

type Effect interface {
	effect()
}

// Reply sends a message back to the actor.
type Reply struct {
	Message protocol.Reply
}

// DeleteTask removes the task. The caller reports success or not-found.
type DeleteTask struct {
	ID   string
	Name string
}

// PatchTask applies Patch to the task. Field names the edited field for the
// confirmation message.
type PatchTask struct {
	ID    string
	Name  string
	Field Field
	Patch tasks.Patch
}

func (Reply) effect()      {}
func (DeleteTask) effect() {}
func (PatchTask) effect()  {}

const (
	colorDanger  = 0xe74c3c
	colorWarning = 0xe67e22
	colorSuccess = 0x2ecc71
	colorInfo    = 0x3498db
)

const (
	msgDeleteCancelled = "❌ Penghapusan dibatalkan."
	msgChooseField     = "⚠️ Pilih 1, 2, atau 3. Atau ketik `batal` untuk membatalkan."
	msgBadDeadline     = "⚠️ Format deadline salah. Gunakan `YYYY-MM-DD HH:MM` atau `YYYY-MM-DD`."
	msgEmptyName       = "⚠️ Nama tidak boleh kosong."
	cancelKeyword      = "batal"
)

var affirmatives = []string{"ya", "yes", "iya", "yep", "yup", "ok", "oke"}

// IsAffirmative reports whether any affirmative token appears anywhere in the
// lowercased reply.
func IsAffirmative(input string) bool {
	lower := strings.ToLower(input)
	for _, w := range affirmatives {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func say(text string) Effect {
	return Reply{Message: protocol.TextReply(text)}
}

func show(e protocol.Embed) Effect {
	return Reply{Message: protocol.EmbedReply(e)}
}

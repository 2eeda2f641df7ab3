package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ent0n29/deadliner/internal/ingest"
	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

const (
	colorDanger  = 0xe74c3c
	colorOK      = 0x2ecc71
	colorInfo    = 0x3498db
	colorWarning = 0xf39c12
	colorMuted   = 0x95a5a6
	colorSnooze  = 0x9b59b6

	listDescMax   = 55
	ingestDescMax = 80
)

const (
	msgNotFound      = "⚠️ Tugas tidak ditemukan."
	msgNothingFound  = "🤖 Hmm, tidak ada tugas yang terdeteksi dari teks itu."
	msgExtractFailed = "⚠️ Gagal memproses teks. Coba lagi nanti."
	msgSnoozeUsage   = "⚠️ Format: `!snooze <keyword> <durasi>`\nContoh: `!snooze python 2h` atau `!snooze raker 1d`"
	msgBadDuration   = "⚠️ Format durasi salah. Gunakan `30m`, `2h`, atau `1d`."
	listFooter       = "done <keyword>  •  !edit <keyword>  •  !snooze <keyword> <1h/2d>"
)

// sortByDeadline orders tasks by their deadline text with missing deadlines
// last. Both layouts sort correctly as strings.
func sortByDeadline(all []tasks.Task) []tasks.Task {
	out := make([]tasks.Task, len(all))
	copy(out, all)
	key := func(t tasks.Task) string {
		if t.Deadline.IsZero() {
			return "9999-99-99"
		}
		return t.Deadline.String()
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

func listView(all []tasks.Task, now time.Time) protocol.Reply {
	if len(all) == 0 {
		return protocol.EmbedReply(protocol.Embed{
			Title:       "📭 Tidak Ada Tugas",
			Description: "Belum ada tugas.\nPaste teks/pengumuman untuk menambah tugas!",
			Color:       colorMuted,
		})
	}

	sorted := sortByDeadline(all)
	attention := 0
	lines := make([]string, 0, len(sorted))
	for i, t := range sorted {
		u := tasks.Classify(t.Deadline, now)
		if u.NeedsAttention() {
			attention++
		}
		var b strings.Builder
		fmt.Fprintf(&b, "`%d.` %s **%s**\n> 📅 %s", i+1, u.Label(), t.Name, protocol.HumanDeadline(t.Deadline))
		if desc := strings.TrimSpace(t.Description); desc != "" {
			b.WriteString("  •  " + protocol.Truncate(desc, listDescMax))
		}
		if links := protocol.LinkParts(t.Links); len(links) > 0 {
			b.WriteString("\n> 🔗 " + strings.Join(links, "  ·  "))
		}
		fmt.Fprintf(&b, "\n> 🆔 `%s`", t.ID)
		lines = append(lines, b.String())
	}

	color := colorOK
	if attention > 0 {
		color = colorDanger
	}
	return protocol.EmbedReply(protocol.Embed{
		Title:       "📋 Daftar Tugas",
		Description: fmt.Sprintf("**%d** tugas  •  **%d** perlu perhatian\n\n%s", len(all), attention, strings.Join(lines, "\n\n")),
		Color:       color,
		Footer:      listFooter,
	})
}

func notFoundView(keyword string) protocol.Reply {
	return protocol.EmbedReply(protocol.Embed{
		Title:       "🔍 Tidak Ditemukan",
		Description: fmt.Sprintf("Tidak ada tugas dengan keyword **\"%s\"**.", keyword),
		Color:       colorMuted,
	})
}

func ambiguousView(matches []tasks.Task) protocol.Reply {
	opts := make([]string, 0, len(matches))
	for _, t := range matches {
		d := t.Deadline.String()
		if t.Deadline.IsZero() {
			d = "?"
		}
		opts = append(opts, fmt.Sprintf("• **%s** — `%s`", t.Name, d))
	}
	return protocol.EmbedReply(protocol.Embed{
		Title:       "🔍 Beberapa Tugas Ditemukan",
		Description: strings.Join(opts, "\n") + "\n\nGunakan keyword yang lebih spesifik.",
		Color:       colorWarning,
	})
}

func snoozedView(t tasks.Task, next tasks.Deadline) protocol.Reply {
	return protocol.EmbedReply(protocol.Embed{
		Title:       "💤 Tugas Di-snooze!",
		Description: fmt.Sprintf("**%s**\n📅 ~~%s~~ → %s", t.Name, protocol.HumanDeadline(t.Deadline), protocol.HumanDeadline(next)),
		Color:       colorSnooze,
	})
}

func ingestedView(res ingest.Result) protocol.Reply {
	e := protocol.Embed{
		Title:  fmt.Sprintf("✅ %d Tugas Ditambahkan!", len(res.Added)),
		Color:  colorInfo,
		Footer: "Ketik !jadwal untuk lihat semua tugas",
	}
	for _, a := range res.Added {
		val := []string{"📅 " + protocol.HumanDeadline(a.Task.Deadline)}
		if desc := strings.TrimSpace(a.Task.Description); desc != "" {
			val = append(val, "📝 "+protocol.Truncate(desc, ingestDescMax))
		}
		if links := protocol.LinkParts(a.Task.Links); len(links) > 0 {
			val = append(val, "🔗 "+strings.Join(links, "  ·  "))
		}
		e.Fields = append(e.Fields, protocol.Field{
			Name:  a.Urgency.Label() + " " + a.Task.Name,
			Value: strings.Join(val, "\n"),
		})
	}
	return protocol.EmbedReply(e)
}

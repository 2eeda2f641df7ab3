package reminder

import (
	"strings"
	"time"

	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/tasks"
)

type Threshold struct {
	Key    string
	Within time.Duration
	Label  string
	Color  int
}

// Thresholds in strictly descending order.
var Thresholds = []Threshold{
	{Key: tasks.Threshold24h, Within: 24 * time.Hour, Label: "⏰ 24 jam lagi", Color: 0xf39c12},
	{Key: tasks.Threshold3h, Within: 3 * time.Hour, Label: "🔔 3 jam lagi", Color: 0xe67e22},
	{Key: tasks.Threshold1h, Within: time.Hour, Label: "🚨 1 jam lagi!", Color: 0xe74c3c},
}

// Due picks the reminder to send for task at now. Of the thresholds already
// crossed only the tightest one is a candidate, so a task first seen 30
// minutes before its deadline gets the 1h reminder and never a stale 24h or
// 3h one. The candidate is returned only if its key is not yet in Reminded.
// Tasks without a parseable deadline, or whose deadline has passed, are never
// due.
func Due(task tasks.Task, now time.Time) (Threshold, bool) {
	if task.Deadline.IsZero() {
		return Threshold{}, false
	}
	at, err := task.Deadline.At(now.Location())
	if err != nil {
		return Threshold{}, false
	}
	remaining := at.Sub(now)
	if remaining < 0 {
		return Threshold{}, false
	}

	var (
		tightest Threshold
		crossed  bool
	)
	for _, th := range Thresholds {
		if remaining <= th.Within {
			tightest = th
			crossed = true
		}
	}
	if !crossed || task.HasReminded(tightest.Key) {
		return Threshold{}, false
	}
	return tightest, true
}

// BuildEvent renders the reminder notification for a task.
func BuildEvent(channelID string, task tasks.Task, th Threshold) protocol.ReminderEvent {
	embed := protocol.Embed{
		Title:       th.Label + " — " + task.Name,
		Description: "📅 Deadline: " + protocol.HumanDeadline(task.Deadline),
		Color:       th.Color,
	}
	if parts := protocol.LinkParts(task.Links); len(parts) > 0 {
		embed.Fields = append(embed.Fields, protocol.Field{Name: "🔗 Links", Value: strings.Join(parts, "  ·  ")})
	}
	return protocol.ReminderEvent{
		Type:      protocol.TypeReminder,
		ChannelID: channelID,
		TaskID:    task.ID,
		Threshold: th.Key,
		Embed:     embed,
	}
}

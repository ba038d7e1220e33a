package domain

import "time"

// MaxHistory bounds the undo stack.
const MaxHistory = 20

// Snapshot is a deep copy of the editable parts of a project.
type Snapshot struct {
	Label         string        `json:"label"`
	TakenAt       time.Time     `json:"takenAt"`
	Scenes        []Scene       `json:"scenes"`
	Assets        ProjectAssets `json:"assets"`
	TotalDuration float64       `json:"totalDuration"`
}

// History holds undo and redo snapshots.
type History struct {
	Past   []Snapshot `json:"past"`
	Future []Snapshot `json:"future"`
}

func (p *VideoProject) snapshot(label string, now time.Time) Snapshot {
	return Snapshot{
		Label:         label,
		TakenAt:       now,
		Scenes:        cloneScenes(p.Scenes),
		Assets:        p.Assets.Clone(),
		TotalDuration: p.TotalDuration,
	}
}

func (p *VideoProject) restore(s Snapshot) {
	p.Scenes = cloneScenes(s.Scenes)
	p.Assets = s.Assets.Clone()
	p.TotalDuration = s.TotalDuration
}

// Checkpoint records the current state so it can be undone.
func (p *VideoProject) Checkpoint(label string, now time.Time) {
	p.History.Past = append(p.History.Past, p.snapshot(label, now))
	if len(p.History.Past) > MaxHistory {
		p.History.Past = p.History.Past[len(p.History.Past)-MaxHistory:]
	}
	p.History.Future = nil
}

// Undo restores the most recent checkpoint.
func (p *VideoProject) Undo(now time.Time) error {
	n := len(p.History.Past)
	if n == 0 {
		return ErrNothingToUndo
	}
	prev := p.History.Past[n-1]
	p.History.Past = p.History.Past[:n-1]
	p.History.Future = append(p.History.Future, p.snapshot(prev.Label, now))
	p.restore(prev)
	p.UpdatedAt = now
	return nil
}

// Redo re-applies the most recently undone state.
func (p *VideoProject) Redo(now time.Time) error {
	n := len(p.History.Future)
	if n == 0 {
		return ErrNothingToRedo
	}
	next := p.History.Future[n-1]
	p.History.Future = p.History.Future[:n-1]
	p.History.Past = append(p.History.Past, p.snapshot(next.Label, now))
	p.restore(next)
	p.UpdatedAt = now
	return nil
}

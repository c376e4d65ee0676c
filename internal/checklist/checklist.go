package checklist

import "github.com/TobiSchelling/morningbrief/internal/briefing"

// Checker answers whether an item id is done. Both *completion.Store and
// completion.Snapshot satisfy it.
type Checker interface {
	IsDone(id string) bool
}

// ItemView is an item with its current checked state.
type ItemView struct {
	briefing.Item
	Done bool
}

// SectionView is a section with its per-section counts. Empty sections are
// kept and flagged rather than dropped.
type SectionView struct {
	ID    string
	Title string
	Icon  string
	Items []ItemView
	Done  int
	Total int
	Empty bool
}

// Stats are the whole-document aggregates.
type Stats struct {
	Total   int
	Done    int
	Pending int
	High    int
}

// View is the reconciled document. NoData is set when there is no document or
// it has no sections, which is distinct from a document of empty sections.
type View struct {
	NoData      bool
	GeneratedAt string
	Sections    []SectionView
	Stats       Stats
}

// Reconcile combines a document with completion state. It never mutates doc
// and must be re-run after every completion change.
func Reconcile(doc *briefing.Document, checks Checker) View {
	if !doc.HasContent() {
		return View{NoData: true}
	}

	v := View{Sections: make([]SectionView, 0, len(doc.Sections))}
	if !doc.GeneratedAt.IsZero() {
		v.GeneratedAt = doc.GeneratedAt.Local().Format("15:04")
	}

	for _, s := range doc.Sections {
		sv := SectionView{
			ID:    s.ID,
			Title: s.Title,
			Icon:  s.Icon,
			Items: make([]ItemView, 0, len(s.Items)),
			Total: len(s.Items),
			Empty: len(s.Items) == 0,
		}
		for _, it := range s.Items {
			done := checks != nil && checks.IsDone(it.ID)
			if done {
				sv.Done++
			}
			if it.Priority == briefing.PriorityHigh {
				v.Stats.High++
			}
			sv.Items = append(sv.Items, ItemView{Item: it, Done: done})
		}
		v.Stats.Total += sv.Total
		v.Stats.Done += sv.Done
		v.Sections = append(v.Sections, sv)
	}
	v.Stats.Pending = v.Stats.Total - v.Stats.Done
	return v
}

// Section returns the reconciled section with the given id, or nil.
func (v View) Section(id string) *SectionView {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

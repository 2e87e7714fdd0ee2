package reconcile

import (
	"fmt"
	"strings"

	"github.com/certprep/qbank/pkg/classify"
	"github.com/certprep/qbank/pkg/store"
)

// Selector identifies the Questions a run removes. It is one of ByIDs,
// ByPartition or ByHeuristic.
type Selector interface {
	// Describe names the selection for logs and summaries.
	Describe() string
	selector()
}

// ByIDs selects an explicit identifier list. Identifiers that do not exist
// are reported as not found.
type ByIDs struct {
	IDs []string
}

// ByPartition selects every Question of one certification.
type ByPartition struct {
	CertificationID string
}

// ByHeuristic selects the Questions in Scope whose free text the
// Classifier matches.
type ByHeuristic struct {
	Scope      store.Query
	Classifier classify.Classifier
}

func (ByIDs) selector()       {}
func (ByPartition) selector() {}
func (ByHeuristic) selector() {}

// Describe implements Selector.
func (s ByIDs) Describe() string {
	const preview = 3
	if len(s.IDs) <= preview {
		return fmt.Sprintf("ids [%s]", strings.Join(s.IDs, ", "))
	}
	return fmt.Sprintf("ids [%s, ... %d more]", strings.Join(s.IDs[:preview], ", "), len(s.IDs)-preview)
}

// Describe implements Selector.
func (s ByPartition) Describe() string {
	return "certification " + s.CertificationID
}

// Describe implements Selector.
func (s ByHeuristic) Describe() string {
	scope := "all questions"
	if s.Scope.CertificationID != "" {
		scope = "certification " + s.Scope.CertificationID
	}
	if d, ok := s.Classifier.(fmt.Stringer); ok {
		return fmt.Sprintf("heuristic %s in %s", d, scope)
	}
	return "heuristic in " + scope
}

// validateSelector rejects selectors that would match nothing or everything
// by mistake.
func validateSelector(sel Selector) error {
	switch s := sel.(type) {
	case ByIDs:
		if len(store.Dedupe(s.IDs)) == 0 {
			return invalid("ids", s.IDs, "at least one identifier is required")
		}
	case ByPartition:
		if strings.TrimSpace(s.CertificationID) == "" {
			return invalid("certification_id", s.CertificationID, "is required")
		}
	case ByHeuristic:
		if s.Classifier == nil {
			return invalid("classifier", nil, "is required")
		}
	case nil:
		return invalid("selector", nil, "is required")
	default:
		return invalid("selector", fmt.Sprintf("%T", sel), "unsupported selector")
	}
	return nil
}

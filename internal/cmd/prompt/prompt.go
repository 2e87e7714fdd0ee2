// Package prompt asks the operator to approve destructive actions.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/certprep/qbank/internal/cmd/emoji"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/reconcile"
)

// previewLimit caps how many identifiers a plan prints.
const previewLimit = 10

// Confirm writes question and reads a y/N answer. Anything other than
// "y" or "yes", including end of input, declines.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s (y/N): ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.WrapIO("read", "stdin", err)
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes", nil
}

// ForPlan returns a reconcile.ConfirmFunc. With assumeYes the plan is only
// printed. Otherwise it is printed and the operator must answer y.
func ForPlan(in io.Reader, out io.Writer, assumeYes bool) reconcile.ConfirmFunc {
	return func(_ context.Context, plan *reconcile.Plan) (bool, error) {
		Describe(out, plan)
		if assumeYes {
			return true, nil
		}
		ok, err := Confirm(in, out, "Delete these rows?")
		if err != nil {
			return false, err
		}
		if !ok {
			fmt.Fprint(out, emoji.Line(emoji.Warning, "Cancelled, nothing was deleted"))
		}
		return ok, nil
	}
}

// Describe prints a plan.
func Describe(out io.Writer, plan *reconcile.Plan) {
	fmt.Fprint(out, emoji.Line(emoji.Info, "Selection: "+plan.Selector))
	if n := len(plan.Questions); n > 0 {
		mode := "in chunks"
		if plan.OneByOne {
			mode = "one at a time"
		}
		fmt.Fprint(out, emoji.Line(emoji.Info, fmt.Sprintf("%d questions will be deleted %s: %s", n, mode, preview(plan.Questions))))
	}
	if n := len(plan.NotFound); n > 0 {
		fmt.Fprint(out, emoji.Line(emoji.Info, fmt.Sprintf("%d question identifiers do not exist: %s", n, preview(plan.NotFound))))
	}
	fmt.Fprint(out, emoji.Line(emoji.Info, fmt.Sprintf("%d answer records will be deleted first", plan.Answers)))
}

func preview(ids []string) string {
	if len(ids) <= previewLimit {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:previewLimit], ", ") + fmt.Sprintf(" and %d more", len(ids)-previewLimit)
}

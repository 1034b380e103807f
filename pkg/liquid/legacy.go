package liquid

import (
	"regexp"
	"strings"

	"github.com/neurodesk/liquid/pkg/lexical"
	"github.com/neurodesk/liquid/pkg/sourcemap"
)

// legacyTrim is the older whitespace handling: tags never claim line
// breaks, and the kept content loses one leading and one trailing line
// break plus the indentation of its last line. It does not maintain a
// source map.
type legacyTrim struct{}

func (legacyTrim) pattern() *regexp.Regexp { return lexical.LegacyConditions }

func (legacyTrim) orphan(e *Engine, keyword string) error {
	err := ErrOrphanElse
	if keyword == "elsif" {
		err = ErrOrphanElsif
	}
	return e.wrap(err)
}

func (legacyTrim) record(sourcemap.Patcher, string, *conditionGroup, *branch) {}

func (legacyTrim) splice(content string, g *conditionGroup, sel *branch) (string, int) {
	res := ""
	if sel != nil {
		res = content[sel.start:sel.end]
	}

	end := g.end()
	left := preparedLeft(content, g.start(), res)
	shift := collapseShift(left, content, end, res)

	if res != "" {
		res = strings.TrimPrefix(res, "\n")
		res = removeIndentBlock(res)
		res = strings.TrimSuffix(res, "\n")
	}

	head := left + res
	return head + content[end+shift:], len(head)
}

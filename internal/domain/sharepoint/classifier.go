package sharepoint

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
)

// FileCategory is the classification assigned to a file by name
type FileCategory string

const (
	CategoryOrder   FileCategory = "order"
	CategoryInvoice FileCategory = "invoice"
	CategoryOther   FileCategory = "other"
)

// IsValid checks if the category is valid
func (c FileCategory) IsValid() bool {
	switch c {
	case CategoryOrder, CategoryInvoice, CategoryOther:
		return true
	}
	return false
}

// ClassifierOptions adds glob patterns on top of the built-in token rules.
// Patterns use doublestar syntax and are matched against the case-folded file name.
type ClassifierOptions struct {
	OrderPatterns   []string
	InvoicePatterns []string
}

// Classifier assigns a FileCategory to file names. It is safe for concurrent use.
type Classifier struct {
	orderPatterns   []string
	invoicePatterns []string
}

// NewClassifier validates the extra patterns up front so Classify never fails.
func NewClassifier(opts ClassifierOptions) (*Classifier, error) {
	c := &Classifier{}

	var err error
	if c.orderPatterns, err = c.compile(opts.OrderPatterns); err != nil {
		return nil, err
	}
	if c.invoicePatterns, err = c.compile(opts.InvoicePatterns); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Classifier) compile(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid classifier pattern %q", p)
		}
		out = append(out, c.fold(p))
	}
	return out, nil
}

// fold returns a case-folded copy. cases.Caser is stateful, so a fresh one is used per call.
func (c *Classifier) fold(s string) string {
	return cases.Fold().String(s)
}

// Classify returns order, invoice or other. A name carrying both signals is other.
func (c *Classifier) Classify(fileName string) FileCategory {
	name := c.fold(strings.TrimSpace(fileName))
	if name == "" {
		return CategoryOther
	}

	stem := strings.TrimSuffix(name, path.Ext(name))
	tokens := tokenize(stem)

	isOrder := hasToken(tokens, "po", "order") || matchAny(c.orderPatterns, name)
	isInvoice := hasToken(tokens, "inv", "invoice") || matchAny(c.invoicePatterns, name)

	switch {
	case isOrder && !isInvoice:
		return CategoryOrder
	case isInvoice && !isOrder:
		return CategoryInvoice
	default:
		return CategoryOther
	}
}

// qualifiers may be glued in front of a word, as in "purchaseorder".
var qualifiers = []string{"purchase", "sales", "customer", "supplier", "proforma"}

// hasToken reports whether a token equals exact, starts with word ("orders"), or is word
// behind a known qualifier. A token that merely contains word ("border") does not count.
func hasToken(tokens []string, exact, word string) bool {
	for _, t := range tokens {
		if t == exact || strings.HasPrefix(t, word) {
			return true
		}
		for _, q := range qualifiers {
			if t == q+word {
				return true
			}
		}
	}
	return false
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// patterns were validated in NewClassifier
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// tokenize splits on anything that is not a letter or digit, and between letters and digits,
// so "PO1001" yields "po" and "1001".
func tokenize(s string) []string {
	var (
		tokens []string
		cur    strings.Builder
		last   rune
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			if unicode.IsDigit(last) {
				flush()
			}
			cur.WriteRune(r)
		case unicode.IsDigit(r):
			if unicode.IsLetter(last) {
				flush()
			}
			cur.WriteRune(r)
		default:
			flush()
		}
		last = r
	}
	flush()
	return tokens
}

var defaultClassifier = &Classifier{}

// Classify classifies with the built-in rules only.
func Classify(fileName string) FileCategory {
	return defaultClassifier.Classify(fileName)
}

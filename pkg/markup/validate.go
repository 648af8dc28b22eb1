package markup

import "fmt"

// ValidationError describes why a document failed the shape check.
type ValidationError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document entry %d invalid: %s (%s)", e.Index, e.Field, e.Reason)
}

// Validate checks that the document has the minimal shape the snapshot
// parser expects: every article element must carry a name word list, a
// numeric price, and an id. A nil return means the document is usable.
//
// Rejecting malformed input here keeps shape concerns out of the business
// logic downstream; a cycle that receives an invalid document is aborted.
func Validate(doc *Document) *ValidationError {
	if doc == nil || len(doc.Children) == 0 {
		return &ValidationError{Field: "child", Reason: "document has no entries"}
	}

	for i, article := range doc.Elements("article") {
		if len(article.AttrWords("data-name")) == 0 {
			return &ValidationError{Index: i, Field: "data-name", Reason: "missing or empty"}
		}
		if _, ok := article.AttrFloat("data-price"); !ok {
			return &ValidationError{Index: i, Field: "data-price", Reason: "missing or not numeric"}
		}
		if article.AttrString("data-id") == "" && article.FindChild("a") == nil {
			return &ValidationError{Index: i, Field: "data-id", Reason: "no id attribute and no detail link"}
		}
	}
	return nil
}

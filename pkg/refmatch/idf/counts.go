package idf

// Counter maintains document frequencies over a set of candidate strings
type Counter struct {
	N  int64            // number of non-empty documents
	DF map[string]int64 // document frequency per token
}

// NewCounter creates a new document-frequency counter
func NewCounter() *Counter {
	return &Counter{
		N:  0,
		DF: make(map[string]int64),
	}
}

// Build counts every token sequence in docs.
func Build(docs [][]string) *Counter {
	c := NewCounter()
	for _, tokens := range docs {
		c.AddDocument(tokens)
	}
	return c
}

// AddDocument updates counts for one tokenized document.
// Empty documents are ignored; a token contributes at most 1 per document.
func (c *Counter) AddDocument(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	c.N++

	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		c.DF[t]++
	}
}

// TotalDocs returns the total number of documents processed
func (c *Counter) TotalDocs() int64 {
	return c.N
}

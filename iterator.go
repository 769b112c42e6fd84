package apptokens

import "context"

const defaultListPageSize = 50

// TokenIterator walks the platform's token listing page by page, fetching
// the next page only when the current one is exhausted. It is finite and
// non-restartable; create a new iterator for a fresh read.
type TokenIterator struct {
	ctx      context.Context
	platform Platform
	pageSize int
	nextPage int

	buffer  []AppToken
	pos     int
	fetched int
	total   int
	started bool
	done    bool

	current AppToken
	err     error
}

// Next advances to the next token. It returns false when the listing is
// exhausted or a remote call failed; check Err afterwards.
func (it *TokenIterator) Next() bool {
	if it == nil || it.done || it.err != nil {
		return false
	}

	if it.pos >= len(it.buffer) {
		if !it.fetch() {
			return false
		}
	}

	it.current = it.buffer[it.pos]
	it.pos++
	return true
}

func (it *TokenIterator) fetch() bool {
	if it.started && it.fetched >= it.total {
		it.done = true
		return false
	}

	page, err := it.platform.ListTokens(it.ctx, ListPage{
		Index: it.nextPage,
		Size:  it.pageSize,
	})
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	it.started = true
	it.total = page.TotalCount
	it.fetched += len(page.Tokens)
	it.buffer = page.Tokens
	it.pos = 0
	it.nextPage++

	if len(page.Tokens) == 0 {
		it.done = true
		return false
	}
	return true
}

// Token returns the token Next advanced to.
func (it *TokenIterator) Token() AppToken {
	return it.current
}

func (it *TokenIterator) Err() error {
	if it == nil {
		return nil
	}
	return it.err
}

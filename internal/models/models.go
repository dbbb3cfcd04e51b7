package models

// SharedText is one piece of text handed to the tool, as a share action would.
type SharedText struct {
	Line int
	Text string
}

// Result is the outcome of resolving one short link.
// Either TalkURL and Transcript are set, or Error is.
type Result struct {
	ShortURL   string
	TalkURL    string
	Transcript string
	Error      error
}

// OK reports whether the result carries a transcript.
func (r Result) OK() bool {
	return r.Error == nil
}

package cache

import "time"

// DigestRecord is one generated digest as listed by history.
type DigestRecord struct {
	ID          string
	GeneratedAt time.Time
	Intro       string
	Output      string
	World       int
	National    int
	Local       int
}

// Total is the number of articles in the digest.
func (r DigestRecord) Total() int {
	return r.World + r.National + r.Local
}

type QueryOpts struct {
	Since    time.Time
	Sources  []string
	Search   string
	Category string
	Limit    int
}

type Stats struct {
	Articles  int
	Summaries int
	Digests   int
	SizeBytes int64
}

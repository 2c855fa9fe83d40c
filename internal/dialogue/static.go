package dialogue

import "context"

// Static always answers with the same reply.
type Static struct {
	Reply string
}

// NewStatic returns a delegate that answers every question with reply.
func NewStatic(reply string) *Static {
	return &Static{Reply: reply}
}

// GenerateAnswer returns the configured reply.
func (s *Static) GenerateAnswer(_ context.Context, _ string) (string, error) {
	return s.Reply, nil
}

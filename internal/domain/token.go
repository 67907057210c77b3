package domain

// Token is a staked or revalued ERC-20, keyed by address.
type Token struct {
	ID        string `json:"id"`
	Timestamp uint64 `json:"timestamp"`
}

func (*Token) Kind() string       { return KindToken }
func (t *Token) EntityID() string { return t.ID }

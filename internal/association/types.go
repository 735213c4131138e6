package association

// #region key
// Key addresses one association cell: the pair (mode, invariant token).
type Key struct {
	Mode  string `json:"mode"`
	Token string `json:"token"`
}

// Less orders keys by mode, then token.
func (k Key) Less(other Key) bool {
	if k.Mode != other.Mode {
		return k.Mode < other.Mode
	}
	return k.Token < other.Token
}

// #endregion key

// #region entry
// Entry is one materialized association weight.
type Entry struct {
	Key
	Value float64 `json:"value"`
}

// #endregion entry

package context

type Key string

const (
	Actor  Key = "actor"
	Family Key = "family"
	Params Key = "params"
)

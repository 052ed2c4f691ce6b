package main

import "github.com/winitzki/chymyst-go/internal/jc"

func reactionsOf(reactions ...*jc.Reaction) []*jc.Reaction {
	return reactions
}

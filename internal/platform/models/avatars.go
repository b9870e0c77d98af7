package models

const DefaultAvatar = "lion"

// Avatars lists the selectable child avatars in display order.
var Avatars = []string{
	"lion", "fox", "panda", "tiger", "koala", "penguin",
	"unicorn", "dragon", "rocket", "star", "soccer", "music",
}

func IsAvatar(key string) bool {
	for _, a := range Avatars {
		if a == key {
			return true
		}
	}
	return false
}

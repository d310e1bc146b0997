package domain

// PageAsset is an illustrated page produced by the executor.
type PageAsset struct {
	PageNumber int
	ImageRef   string
	Caption    string
}

// CharacterAsset is a character portrait produced by the executor.
type CharacterAsset struct {
	Name     string
	Role     string
	ImageRef string
	IsHero   bool
}

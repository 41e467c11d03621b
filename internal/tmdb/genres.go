package tmdb

import "github.com/handsomefox/nextep/internal/media"

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

const AnimationGenreID = 16

// MovieGenres and TVGenres are the catalog genre lists, labelled for the
// pt-BR locale the app targets.
var MovieGenres = []Genre{
	{ID: 28, Name: "Ação"},
	{ID: 12, Name: "Aventura"},
	{ID: AnimationGenreID, Name: "Animação"},
	{ID: 35, Name: "Comédia"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentário"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Família"},
	{ID: 14, Name: "Fantasia"},
	{ID: 36, Name: "História"},
	{ID: 27, Name: "Terror"},
	{ID: 10402, Name: "Música"},
	{ID: 9648, Name: "Mistério"},
	{ID: 10749, Name: "Romance"},
	{ID: 878, Name: "Ficção Científica"},
	{ID: 10770, Name: "Cinema TV"},
	{ID: 53, Name: "Suspense"},
	{ID: 10752, Name: "Guerra"},
	{ID: 37, Name: "Faroeste"},
}

var TVGenres = []Genre{
	{ID: 10759, Name: "Ação e Aventura"},
	{ID: AnimationGenreID, Name: "Animação"},
	{ID: 35, Name: "Comédia"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentário"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Família"},
	{ID: 10762, Name: "Kids"},
	{ID: 9648, Name: "Mistério"},
	{ID: 10763, Name: "News"},
	{ID: 10764, Name: "Reality"},
	{ID: 10765, Name: "Sci-Fi & Fantasy"},
	{ID: 10766, Name: "Soap"},
	{ID: 10767, Name: "Talk"},
	{ID: 10768, Name: "War & Politics"},
	{ID: 37, Name: "Western"},
}

func GenresFor(kind media.Kind) []Genre {
	if kind == media.TV {
		return TVGenres
	}
	return MovieGenres
}

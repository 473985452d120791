package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"-"`
	Role           string    `json:"role"`
	ProfilePicture *string   `json:"profilePicture"`
	JoinDate       time.Time `json:"joinDate"`
}

type Movie struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Genre         []string  `json:"genre"`
	ReleaseYear   int       `json:"releaseYear,omitempty"`
	Director      string    `json:"director,omitempty"`
	Cast          []string  `json:"cast"`
	Synopsis      string    `json:"synopsis,omitempty"`
	PosterURL     string    `json:"posterUrl,omitempty"`
	AverageRating float64   `json:"averageRating"`
	ReviewCount   int       `json:"reviewCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ReviewAuthor is the subset of a User shown next to a review.
type ReviewAuthor struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profilePicture"`
}

// MovieRef is the subset of a Movie shown next to a review on a profile.
type MovieRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"posterUrl,omitempty"`
}

type Review struct {
	ID        string       `json:"id"`
	User      ReviewAuthor `json:"user"`
	MovieID   string       `json:"movieId"`
	Movie     *MovieRef    `json:"movie,omitempty"`
	Rating    int          `json:"rating"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type WatchlistEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	MovieID   string    `json:"movie"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserProfile struct {
	User
	Reviews []Review `json:"reviews"`
}

const (
	SortNewest = ""
	SortRating = "rating"
)

// MovieFilter holds the optional catalog filters. Zero values mean "not set".
type MovieFilter struct {
	Genres    []string
	Year      int
	MinRating *float64
	Title     string
	Sort      string
	Page      int
	Limit     int
}

type MoviePage struct {
	Data  []Movie `json:"data"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Pages int     `json:"pages"`
}

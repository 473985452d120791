package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordNeverSerialized(t *testing.T) {
	user := User{
		ID:       "u1",
		Username: "johndoe",
		Email:    "john@example.com",
		Password: "$2a$10$hash",
		Role:     RoleUser,
	}

	jsonData, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(jsonData), "password")
	assert.NotContains(t, string(jsonData), "$2a$10$hash")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, "johndoe", decoded["username"])
	assert.Equal(t, "user", decoded["role"])
	assert.Nil(t, decoded["profilePicture"])
}

func TestUserProfileFlattensUser(t *testing.T) {
	profile := UserProfile{
		User: User{ID: "u1", Username: "johndoe", Email: "john@example.com"},
		Reviews: []Review{{
			ID:      "r1",
			MovieID: "m1",
			Movie:   &MovieRef{ID: "m1", Title: "Alien"},
			Rating:  5,
		}},
	}

	jsonData, err := json.Marshal(profile)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, "u1", decoded["id"])
	assert.Equal(t, "john@example.com", decoded["email"])
	reviews, ok := decoded["reviews"].([]interface{})
	require.True(t, ok)
	require.Len(t, reviews, 1)
	movie := reviews[0].(map[string]interface{})["movie"].(map[string]interface{})
	assert.Equal(t, "Alien", movie["title"])
}

func TestMovieAggregatesAlwaysSerialized(t *testing.T) {
	movie := Movie{
		ID:    "m1",
		Title: "Example Movie",
		Genre: []string{"Action"},
		Cast:  []string{"Zoe", "Adam"},
	}

	jsonData, err := json.Marshal(movie)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, float64(0), decoded["averageRating"])
	assert.Equal(t, float64(0), decoded["reviewCount"])
	assert.Equal(t, []interface{}{"Zoe", "Adam"}, decoded["cast"])
	assert.NotContains(t, decoded, "releaseYear")
}

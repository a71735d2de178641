package learning

import "github.com/example/geolearn/pkg/models"

// ProfileUpdate is a partial profile. Nil fields are left untouched.
// TotalProgress is derived and cannot be set.
type ProfileUpdate struct {
	Name         *string            `validate:"omitnil,min=1,max=64"`
	Email        *string            `validate:"omitempty,email"`
	Level        *models.Level      `validate:"omitnil,oneof=beginner intermediate expert specialized"`
	Achievements *[]string
	Bookmarks    *[]string
	Notes        *map[string]string
}

func (u ProfileUpdate) apply(p *models.UserProfile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Level != nil {
		p.Level = *u.Level
	}
	if u.Achievements != nil {
		p.Achievements = append([]string{}, (*u.Achievements)...)
	}
	if u.Bookmarks != nil {
		// keep the last occurrence of each id, matching AddBookmark
		var bookmarks []string
		for _, id := range *u.Bookmarks {
			bookmarks = append(removeAll(bookmarks, id), id)
		}
		p.Bookmarks = bookmarks
	}
	if u.Notes != nil {
		notes := make(map[string]string, len(*u.Notes))
		for k, v := range *u.Notes {
			notes[k] = v
		}
		p.Notes = notes
	}
	p.Normalize()
}

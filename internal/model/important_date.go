package model

import (
	"encoding/json"
	"time"
)

type DateCategory string

const (
	CategoryBirthday    DateCategory = "birthday"
	CategoryAnniversary DateCategory = "anniversary"
	CategoryGraduation  DateCategory = "graduation"
	CategoryWedding     DateCategory = "wedding"
	CategoryMemorial    DateCategory = "memorial"
	CategoryHoliday     DateCategory = "holiday"
	CategoryOther       DateCategory = "other"
)

// DateCategories lists every category in display order.
var DateCategories = []DateCategory{
	CategoryBirthday,
	CategoryAnniversary,
	CategoryGraduation,
	CategoryWedding,
	CategoryMemorial,
	CategoryHoliday,
	CategoryOther,
}

func (c DateCategory) Valid() bool {
	for _, known := range DateCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Icon returns the symbol name clients render next to a date of this category.
func (c DateCategory) Icon() string {
	switch c {
	case CategoryBirthday:
		return "gift.fill"
	case CategoryAnniversary:
		return "heart.fill"
	case CategoryGraduation:
		return "graduationcap.fill"
	case CategoryWedding:
		return "heart.circle.fill"
	case CategoryMemorial:
		return "star.fill"
	case CategoryHoliday:
		return "calendar.badge.clock"
	default:
		return "calendar"
	}
}

// ImportantDate has no identifier of its own. Two entries with the same date
// and description are the same entry as far as removal is concerned.
type ImportantDate struct {
	Date        time.Time    `json:"date"`
	Description string       `json:"description"`
	Category    DateCategory `json:"category"`
	Reminder    bool         `json:"reminder"`
}

// MarshalJSON adds the category icon. Decoding ignores it.
func (d ImportantDate) MarshalJSON() ([]byte, error) {
	type plain ImportantDate
	return json.Marshal(struct {
		plain
		Icon string `json:"icon"`
	}{plain(d), d.Category.Icon()})
}

func (d ImportantDate) SameAs(other ImportantDate) bool {
	return d.Date.Equal(other.Date) && d.Description == other.Description
}

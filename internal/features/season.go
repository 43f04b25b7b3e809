package features

import "github.com/recifedata/crimecast/internal/model"

// SeasonOf maps a month to its Southern Hemisphere season.
func SeasonOf(month int) (model.Season, error) {
	switch month {
	case 12, 1, 2:
		return model.SeasonSummer, nil
	case 3, 4, 5:
		return model.SeasonAutumn, nil
	case 6, 7, 8:
		return model.SeasonWinter, nil
	case 9, 10, 11:
		return model.SeasonSpring, nil
	default:
		return "", model.NewOutOfRange("month", month, model.MinMonth, model.MaxMonth)
	}
}

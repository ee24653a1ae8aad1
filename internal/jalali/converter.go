package jalali

import "time"

// Locale selects the month-name rendering used for labels.
type Locale int

const (
	// LocalePersian renders month names in Persian script.
	LocalePersian Locale = iota
	// LocaleLatin renders transliterated month names.
	LocaleLatin
)

var persianMonthNames = [13]string{
	"", "فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

var latinMonthNames = [13]string{
	"", "Farvardin", "Ordibehesht", "Khordad", "Tir", "Mordad", "Shahrivar",
	"Mehr", "Aban", "Azar", "Dey", "Bahman", "Esfand",
}

// Converter binds the pure calendar arithmetic to an explicit time zone and
// month-name locale. Construct one per process instead of relying on
// ambient locale state; the zero value is not usable.
type Converter struct {
	location *time.Location
	locale   Locale
}

// NewConverter returns a converter anchored to the provided location. A nil
// location defaults to Asia/Tehran's fixed civil offset.
func NewConverter(loc *time.Location, locale Locale) *Converter {
	if loc == nil {
		loc = time.FixedZone("IRST", int(3*time.Hour+30*time.Minute)/int(time.Second))
	}
	return &Converter{location: loc, locale: locale}
}

// Locale returns the month-name locale the converter renders with.
func (c *Converter) Locale() Locale {
	if c == nil {
		return LocalePersian
	}
	return c.locale
}

// Location returns the converter's time zone.
func (c *Converter) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.UTC
	}
	return c.location
}

// ToGregorian returns midnight of the Gregorian day corresponding to the
// Jalali date, in the converter's location.
func (c *Converter) ToGregorian(d Date) time.Time {
	gy, gm, gd := d.Gregorian()
	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, c.Location())
}

// EndOfDay returns the last representable instant of the Gregorian day
// corresponding to the Jalali date, in the converter's location.
func (c *Converter) EndOfDay(d Date) time.Time {
	return c.ToGregorian(d).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FromTime converts an instant to the Jalali date of its civil day in the
// converter's location.
func (c *Converter) FromTime(t time.Time) (Date, error) {
	local := t.In(c.Location())
	return FromGregorian(local.Year(), int(local.Month()), local.Day())
}

// MonthName returns the localized name of the given month, or an empty
// string for values outside 1..12.
func (c *Converter) MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	if c != nil && c.locale == LocaleLatin {
		return latinMonthNames[month]
	}
	return persianMonthNames[month]
}

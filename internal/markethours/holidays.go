package markethours

// NSE trading holidays (weekday closures only). Tentative dates follow the
// exchange circular and may move by a day.
var nseHolidays = []string{
	// 2025
	"2025-02-26", // Mahashivratri
	"2025-03-14", // Holi
	"2025-03-31", // Id-ul-Fitr
	"2025-04-10", // Mahavir Jayanti
	"2025-04-14", // Dr. Ambedkar Jayanti
	"2025-04-18", // Good Friday
	"2025-05-01", // Maharashtra Day
	"2025-08-15", // Independence Day
	"2025-08-27", // Ganesh Chaturthi
	"2025-10-02", // Mahatma Gandhi Jayanti / Dussehra
	"2025-10-21", // Diwali Laxmi Pujan
	"2025-10-22", // Diwali Balipratipada
	"2025-11-05", // Guru Nanak Jayanti
	"2025-12-25", // Christmas

	// 2026
	"2026-01-26", // Republic Day
	"2026-02-17", // Mahashivratri (tentative)
	"2026-03-03", // Holi
	"2026-03-31", // Id-ul-Fitr (tentative)
	"2026-04-03", // Good Friday
	"2026-04-14", // Dr. Ambedkar Jayanti
	"2026-05-01", // Maharashtra Day
	"2026-05-28", // Bakri Id (tentative)
	"2026-06-26", // Muharram (tentative)
	"2026-09-14", // Ganesh Chaturthi
	"2026-10-02", // Mahatma Gandhi Jayanti
	"2026-10-20", // Dussehra
	"2026-11-10", // Diwali Balipratipada
	"2026-11-24", // Guru Nanak Jayanti
	"2026-12-25", // Christmas
}

// NSEHolidays returns a copy of the built-in holiday calendar.
func NSEHolidays() []string {
	return append([]string(nil), nseHolidays...)
}

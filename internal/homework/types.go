package homework

import "fmt"

// Wire keys of the status endpoint.
const (
	KeyItems         = "homeworks"
	KeyNextWatermark = "current_date"
	KeyName          = "homework_name"
	KeyStatus        = "status"
)

// Watermark is a unix timestamp (seconds) used as the lower bound of the next
// status query.
type Watermark int64

// StatusResponse is a validated status payload. Items keeps the raw decoded
// entries; they are checked one by one when observed.
type StatusResponse struct {
	Items         []any
	NextWatermark Watermark
}

// Item is a single tracked homework.
type Item struct {
	Name   string
	Status string
}

// Verdicts maps every recognized status to the text sent to the chat.
var Verdicts = map[string]string{
	"approved":  "Работа проверена: ревьюеру всё понравилось. Ура!",
	"reviewing": "Работа взята на проверку ревьюером.",
	"rejected":  "Работа проверена: у ревьюера есть замечания.",
}

// ChangeMessage formats the notification for a status transition.
func ChangeMessage(name, verdict string) string {
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", name, verdict)
}

// FailureMessage formats the notification sent when a poll iteration fails.
func FailureMessage(err error) string {
	return fmt.Sprintf("Сбой в работе программы: %v", err)
}

package model

// Channel is which path Submit took to deliver the application.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelBrowser Channel = "browser"
)

// KnownLoginWallSources is the set of job-source tags whose "needs login"
// browser-worker response is treated as a signal to drop the posting
// entirely rather than surface it as needs_authentication.
var KnownLoginWallSources = map[string]bool{
	"remoteok": true,
}

// FormData is the best-effort set of form-fillable fields extracted from a
// parsed CV (with profile and email-derived fallbacks) for the email path's
// compose step and the browser path's autofill payload.
type FormData struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
	State     string
}

// FullName joins the split name back together, trimming any empty half.
func (f FormData) FullName() string {
	switch {
	case f.FirstName == "" && f.LastName == "":
		return ""
	case f.FirstName == "":
		return f.LastName
	case f.LastName == "":
		return f.FirstName
	default:
		return f.FirstName + " " + f.LastName
	}
}

// Outcome is what Submit reports back to the caller once the channel has
// been dispatched and the application transitioned.
type Outcome struct {
	Channel Channel
	Status  string
	// Deleted is true only for the recognized login-wall exception, where
	// the application and job rows were hard-deleted instead of
	// transitioned.
	Deleted bool
}

// MonitorProbeTopic is the C12 queue topic a browser-path submission
// schedules work onto once it starts or completes.
const MonitorProbeTopic = "monitor_probe"

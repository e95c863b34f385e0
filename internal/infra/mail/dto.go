package mail

type RegistrationEmailData struct {
	Name         string
	Phone        string
	WebinarTitle string
	WebinarDate  string
	Brand        string
}

type DigestRow struct {
	Name       string
	Phone      string
	Status     string
	AssignedTo string
	Notes      string
}

type FollowUpDigestData struct {
	Day   string
	Leads []DigestRow
}

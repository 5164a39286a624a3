package email

const (
	subjectLeadAnalysisFmt      = "New lead for %s: %s"
	subjectLeadLowEngagementFmt = "New lead for %s (short conversation)"
	subjectLeadRatingSuffixFmt  = " · rated %d/5"
	anonymousLeadName           = "Unnamed visitor"
)

package models

// Database schema overview:
// 1. organizations - tenant boundary for every other table
// 2. users - cookie-authenticated members of an organization
// 3. interviews - interview templates with their main questions and insights
// 4. responses - one row per interview call with transcript and analytics
// 5. candidates - people imported by hand or via the ATS bulk import
// 6. resumes / resume_analyses - uploaded resumes and their AI assessment
// 7. candidate_interview_links - single-use invitation links
// 8. ai_provider_preferences - per user LLM provider choice

// All returns every model for migrations.
func All() []any {
	return []any{
		&Organization{},
		&User{},
		&RefreshToken{},
		&PermanentToken{},
		&Interview{},
		&Response{},
		&Candidate{},
		&Resume{},
		&ResumeAnalysis{},
		&CandidateInterviewLink{},
		&AIProviderPreference{},
	}
}

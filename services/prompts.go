package services

import (
	"fmt"
	"strings"

	"github.com/foloup/backend/models"
)

const atsMatchPrompt = `Act as an Applicant Tracking System (ATS).
Compare the candidate resume below against the job description:

1. Identify the key skills the job description requires.
2. Check which of those skills are missing from the resume.
3. List only the missing skills.
4. Write a 1-2 line feedback summary with the resume's strengths and weaknesses.
5. Assign a match score out of 100 for how well the resume fits the job description.

Resume:
%s

Job Description:
%s

Respond strictly with JSON in this shape:
{"missing_skills": ["skill1", "skill2"], "match_score": 85, "feedback": "..."}`

const contactInfoPrompt = `Act as a resume parser. Extract the candidate's contact information from the resume below:
1. Full name (first and last name)
2. Email address
3. Phone number

Resume:
%s

Respond strictly with JSON in this shape:
{"name": "John Doe", "email": "john.doe@email.com", "phone": "+1-555-123-4567"}

Use "not found" for any field that is missing or unclear. Only extract information that is clearly present.`

const resumeAnalysisSystemPrompt = "You are an expert HR professional and technical recruiter. Assess resumes objectively and respond only with valid JSON."

const resumeAnalysisPrompt = `Analyze the resume below for the interview "%s".

Interview objective:
%s

Interview description:
%s

Resume:
%s

Respond with JSON in this shape (scores are integers from 0 to 100):
{
  "overall_score": 0,
  "skills_match": 0,
  "experience_match": 0,
  "education_match": 0,
  "technical_skills": ["..."],
  "soft_skills": ["..."],
  "experience_summary": "...",
  "education_summary": "...",
  "recommendations": ["..."]
}`

const questionsSystemPrompt = "You are an expert in coming up with follow up questions to uncover deeper insights."

const questionsPrompt = `Imagine you are an interviewer specialized in designing interview questions to help hiring managers find candidates with strong technical expertise and project experience.

Interview title: %s
Objective: Generate %d %s level interview questions for a %s position.
Job description:
%s

Generate exactly %d questions. Each question should be concise (at most 30 words), open-ended, and target a different skill from the job description.
Also write a second-person description of the interview (at most 50 words) shown to candidates before they start.

Respond with JSON in this shape:
{"questions": [{"question": "..."}], "description": "..."}`

const interviewerSystemPrompt = `You are %s, a professional interviewer conducting the interview "%s".

Objective:
%s

Main questions to cover, in order:
%s

Rules:
- Ask one question at a time and keep every reply under 60 words.
- Ask at most one follow-up per main question before moving on.
- Stay polite and neutral. Never reveal scores or evaluate the candidate aloud.
- When every main question has been covered, thank the candidate and tell them they can end the interview.`

const analyticsSystemPrompt = "You are an expert in analyzing interview transcripts. You must only use the main questions provided and not generate or infer additional questions."

const analyticsPrompt = `Analyse the following interview transcript.

Main interview questions:
%s

Transcript:
%s

Respond with JSON in this shape:
{
  "overallScore": 0,
  "overallFeedback": "...",
  "communication": {"score": 0, "feedback": "..."},
  "generalIntelligence": "...",
  "softSkillSummary": "...",
  "questionSummaries": [{"question": "...", "summary": "..."}],
  "callSummary": "..."
}
overallScore is an integer from 0 to 100 and communication.score an integer from 0 to 10.
Summarise only the main questions listed above. Use "Not asked" when a question was not covered.`

const insightsSystemPrompt = "You are an expert in uncovering deeper insights from interview question and answer sets."

const insightsPrompt = `Below are summaries of candidate calls for the interview "%s".

Objective:
%s

Call summaries:
%s

Give 3 short insights (at most 25 words each) that help the hiring team improve the interview or understand the candidate pool.
Respond with JSON in this shape: {"insights": ["...", "...", "..."]}`

const communicationSystemPrompt = "You are an expert in analyzing communication skills from interview transcripts."

const communicationPrompt = `Analyse the communication skills shown in the transcript below.

Transcript:
%s

Respond with JSON in this shape:
{
  "communicationScore": 0,
  "overallFeedback": "...",
  "supportingQuotes": [{"quote": "...", "analysis": "...", "type": "strength"}],
  "strengths": ["..."],
  "improvementAreas": ["..."]
}
communicationScore is an integer from 0 to 10 and type is "strength" or "improvement_area".`

func numberedQuestions(questions []models.Question) string {
	lines := make([]string, 0, len(questions))
	for i, q := range questions {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, q.Question))
	}
	return strings.Join(lines, "\n")
}

func transcriptText(turns []models.TranscriptTurn) string {
	var sb strings.Builder
	for _, t := range turns {
		speaker := "Candidate"
		if t.Role == models.SpeakerAgent {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, t.Content)
	}
	return strings.TrimSpace(sb.String())
}

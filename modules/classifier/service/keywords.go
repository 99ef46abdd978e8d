package service

import "github.com/andreypavlenko/jobber/modules/classifier/model"

// keywordPattern is one weighted keyword a category is scored on. Weight
// contributes to the density sum described by "classifier keyword
// density" in the glossary: sum of matched weights divided by token
// count, clipped to [0,1].
type keywordPattern struct {
	keyword string
	weight  float64
}

// keywordDictionary is the fixed, compile-time keyword table the
// deterministic pass scores a normalized subject+body against. One entry
// per closed category; unknown is the fallback when nothing clears a
// usable score.
var keywordDictionary = map[model.Category][]keywordPattern{
	model.CategoryInterviewInvitation: {
		{"interview invitation", 1.0},
		{"schedule an interview", 0.95},
		{"would like to interview", 0.9},
		{"invite you to interview", 0.95},
		{"phone screen", 0.8},
		{"technical interview", 0.85},
		{"next step in our process", 0.6},
		{"meet with the team", 0.6},
		{"available for a call", 0.55},
		{"schedule a call", 0.5},
	},
	model.CategoryRejection: {
		{"unfortunately", 0.6},
		{"not moving forward", 0.9},
		{"decided to move forward with other candidates", 0.95},
		{"will not be moving forward", 0.95},
		{"not selected", 0.85},
		{"other candidates whose qualifications", 0.9},
		{"wish you the best", 0.5},
		{"pursue other applicants", 0.85},
		{"position has been filled", 0.9},
		{"no longer under consideration", 0.9},
	},
	model.CategoryOffer: {
		{"pleased to offer", 1.0},
		{"job offer", 0.9},
		{"offer of employment", 0.95},
		{"extend an offer", 0.95},
		{"excited to offer you the position", 1.0},
		{"welcome to the team", 0.7},
		{"compensation package", 0.55},
		{"start date", 0.45},
	},
	model.CategoryInformationRequest: {
		{"could you provide", 0.6},
		{"please send", 0.55},
		{"additional information", 0.6},
		{"complete the following", 0.55},
		{"a few questions", 0.55},
		{"assessment", 0.5},
		{"coding challenge", 0.5},
		{"take-home", 0.5},
		{"background check", 0.6},
		{"references", 0.5},
	},
	model.CategoryFollowUpRequired: {
		{"following up", 0.6},
		{"checking in", 0.55},
		{"status of your application", 0.6},
		{"still under review", 0.6},
		{"haven't heard back", 0.5},
		{"any update", 0.5},
	},
	model.CategoryAcknowledgment: {
		{"thank you for applying", 0.8},
		{"received your application", 0.85},
		{"application has been received", 0.85},
		{"reviewing your application", 0.7},
		{"under review", 0.6},
		{"we appreciate your interest", 0.6},
	},
	model.CategorySchedulingRequest: {
		{"what times work", 0.8},
		{"your availability", 0.75},
		{"propose a time", 0.75},
		{"calendar invite", 0.6},
		{"reschedule", 0.6},
		{"confirm your attendance", 0.65},
	},
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andreypavlenko/jobber/internal/platform/browser"
	classifierModel "github.com/andreypavlenko/jobber/modules/classifier/model"
	"github.com/andreypavlenko/jobber/modules/monitor/model"
)

func TestPortalSignalKey(t *testing.T) {
	key, ok := portalSignalKey(browser.PortalRejected)
	assert.True(t, ok)
	assert.Equal(t, model.SignalRejected, key)

	_, ok = portalSignalKey(browser.PortalUnknown)
	assert.False(t, ok)

	_, ok = portalSignalKey("something_unrecognized")
	assert.False(t, ok)
}

func TestClassifierSignalKey(t *testing.T) {
	key, ok := classifierSignalKey(classifierModel.CategoryInterviewInvitation)
	assert.True(t, ok)
	assert.Equal(t, model.SignalInterview, key)

	_, ok = classifierSignalKey(classifierModel.CategoryInformationRequest)
	assert.False(t, ok)

	_, ok = classifierSignalKey(classifierModel.CategoryFollowUpRequired)
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, isTerminal("rejected"))
	assert.True(t, isTerminal("Offer_Accepted"))
	assert.False(t, isTerminal("applied"))
	assert.False(t, isTerminal("under_review"))
}

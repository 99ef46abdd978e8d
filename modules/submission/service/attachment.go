package service

import (
	tailoringModel "github.com/andreypavlenko/jobber/modules/tailoring/model"
	tailoringService "github.com/andreypavlenko/jobber/modules/tailoring/service"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// exportCVAttachment renders the tailored CV into the .docx bytes sent as
// the email path's sole attachment (spec §4.7 step 3: "attach only the CV
// file").
func exportCVAttachment(cv *tailoringModel.CustomizedCV) ([]byte, error) {
	return tailoringService.ExportCVDocx(cv)
}

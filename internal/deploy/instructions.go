package deploy

import (
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
)

var reviewInstructionsTemplate = heredoc.Doc(`
	## Instructions for Testing the {{app}}'s Initial Proof of Concept (PoC)

	Your inputs are invaluable for the development team. By providing detailed feedback and corrections, you help us fix issues and improve the overall quality of the application. We rely on your expertise to identify any gaps or areas needing enhancement.

	1. **Variety of Questions**:
	   - Please try a wide range of questions that you anticipate the end users of the application will ask. This helps us ensure the application can handle the expected queries effectively.

	2. **Feedback on Answers**:
	   - After asking each question, use the feedback widgets provided to review the answer given by the application.
	   - If you think the answer is incorrect or could be improved, please use "Edit Answer" to correct it. Your corrections will enable our team to refine the application's accuracy.

	3. **Review of Returned Documents**:
	   - Carefully review each document that the system returns in response to your question.
	   - Use the thumbs up/down feature to indicate whether the document was relevant to the question asked. A thumbs up signifies relevance, while a thumbs down indicates the document was not useful.

	Thank you for your time and effort in testing {{app}}. Your contributions are essential to delivering a high-quality product to our end users.
`)

// markdown shown to reviewers of appName
func ReviewInstructions(appName string) string {
	return strings.ReplaceAll(reviewInstructionsTemplate, "{{app}}", appName)
}

package model

// Test is an ordered collection of questions under a name and subject.
type Test struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"testName" yaml:"name"`
	Subject     string `json:"subject" yaml:"subject"`
	Description string `json:"description,omitempty" yaml:"description"`
	QuestionIDs []int  `json:"-" yaml:"-"`
}

// TestInfo is the test metadata served on GET /taking-test/{sessionId}/test.
type TestInfo struct {
	ID            int    `json:"id"`
	TestName      string `json:"testName"`
	Subject       string `json:"subject"`
	Description   string `json:"description,omitempty"`
	QuestionCount int    `json:"questionCount"`
}

// Info renders the test in its wire form.
func (t Test) Info() TestInfo {
	return TestInfo{
		ID:            t.ID,
		TestName:      t.Name,
		Subject:       t.Subject,
		Description:   t.Description,
		QuestionCount: len(t.QuestionIDs),
	}
}

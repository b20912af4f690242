package transaction

type State interface {
	state()
}

type Editing struct{}

type Validating struct{}

type Submitting struct {
	Request Request
}

type Succeeded struct {
	Confirmation Confirmation
}

type Failed struct {
	Message string
}

func (Editing) state()    {}
func (Validating) state() {}
func (Submitting) state() {}
func (Succeeded) state()  {}
func (Failed) state()     {}

func Name(s State) string {
	switch s.(type) {
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

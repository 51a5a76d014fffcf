package treatment

// RequestStatus is the lifecycle state of a TreatmentRequest.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// Terminal reports whether no further request transition exists.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCompleted
}

// HasTreatment reports whether a request in this status owns a Treatment.
func (s RequestStatus) HasTreatment() bool {
	return s == RequestAccepted || s == RequestCompleted
}

// Status is the lifecycle state of a Treatment.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusVerified   Status = "verified"
)

// Action names a transition; it is used in logs, metrics and error messages.
type Action string

const (
	ActionPropose       Action = "propose"
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionSchedule      Action = "schedule"
	ActionStart         Action = "start"
	ActionComplete      Action = "complete"
	ActionVerify        Action = "verify"
	ActionFarmerConfirm Action = "farmer_confirm"
	ActionDelete        Action = "delete"
)

// requestTransitions lists, per action, the request statuses it may leave from
// and the status it lands in.
var requestTransitions = map[Action]struct {
	From []RequestStatus
	To   RequestStatus
}{
	ActionAccept: {From: []RequestStatus{RequestPending}, To: RequestAccepted},
	ActionReject: {From: []RequestStatus{RequestPending}, To: RequestRejected},
	ActionVerify: {From: []RequestStatus{RequestAccepted}, To: RequestCompleted},
}

var treatmentTransitions = map[Action]struct {
	From []Status
	To   Status
}{
	ActionSchedule: {From: []Status{StatusScheduled}, To: StatusScheduled},
	ActionStart:    {From: []Status{StatusScheduled}, To: StatusInProgress},
	ActionComplete: {From: []Status{StatusInProgress}, To: StatusCompleted},
	ActionVerify:   {From: []Status{StatusCompleted}, To: StatusVerified},
}

// RequestTransition returns the allowed source statuses and the target for a
// request-level action. ok is false when the action does not move a request.
func RequestTransition(a Action) (from []RequestStatus, to RequestStatus, ok bool) {
	t, ok := requestTransitions[a]
	if !ok {
		return nil, "", false
	}
	return append([]RequestStatus(nil), t.From...), t.To, true
}

// TreatmentTransition is the Treatment counterpart of RequestTransition.
func TreatmentTransition(a Action) (from []Status, to Status, ok bool) {
	t, ok := treatmentTransitions[a]
	if !ok {
		return nil, "", false
	}
	return append([]Status(nil), t.From...), t.To, true
}

package model

// Platform role, checked once at the middleware boundary and carried in the
// JWT payload.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTutor   Role = "TUTOR"
	RoleAdmin   Role = "ADMIN"
)

// Project lifecycle stage.
type ProjectStage string

const (
	StagePending   ProjectStage = "PENDING"
	StageActive    ProjectStage = "ACTIVE"
	StageCompleted ProjectStage = "COMPLETED"
)

// Review state of a project proposal. Tutor-created projects start as
// RECOMMENDED, admin-created ones as APPROVED. Students may only apply to
// APPROVED projects.
type ApprovalStatus string

const (
	ApprovalPendingReview ApprovalStatus = "PENDING_REVIEW"
	ApprovalRecommended   ApprovalStatus = "RECOMMENDED"
	ApprovalApproved      ApprovalStatus = "APPROVED"
	ApprovalRejected      ApprovalStatus = "REJECTED"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationAccepted ApplicationStatus = "ACCEPTED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// Task status. REVIEW is part of the canonical set: the previous iteration
// of the platform accepted it as a filter value without declaring it, which
// made stats queries disagree with the enum.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// DefaultProjectCapacity is the maximum number of teams a project may host.
const DefaultProjectCapacity = 3

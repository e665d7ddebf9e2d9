package permission

// Permission codes issued by the candidate-admin backend.
const (
	AdminManage = "ADMIN_MANAGE"
	AdminView   = "ADMIN_VIEW"

	CustomerManage = "CUSTOMER_MANAGE"
	CustomerView   = "CUSTOMER_VIEW"

	DashboardView = "DASHBOARD_VIEW"

	LocationManage = "LOCATION_MANAGE"
	LocationView   = "LOCATION_VIEW"

	NotificationView = "NOTIFICATION_VIEW"

	OnboardingManage = "ONBOARDING_MANAGE"
	OnboardingView   = "ONBOARDING_VIEW"

	PermissionManage = "PERMISSION_MANAGE"
	PermissionView   = "PERMISSION_VIEW"

	ReportView = "REPORT_VIEW"

	RoleManage = "ROLE_MANAGE"
	RoleView   = "ROLE_VIEW"

	ScreeningManage = "SCREENING_MANAGE"
	ScreeningView   = "SCREENING_VIEW"

	SettingsManage = "SETTINGS_MANAGE"
	SettingsView   = "SETTINGS_VIEW"

	TrainingManage = "TRAINING_MANAGE"
	TrainingView   = "TRAINING_VIEW"
)

// Role names carried in a session's roleName.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleStateAdmin = "STATE_ADMIN"
	RoleCityAdmin  = "CITY_ADMIN"
)

package service

// Route is a navigation target returned to the client after a step.
type Route string

const (
	RoutePersonal Route = "/onboarding/step-1-personal"
	RouteBusiness Route = "/onboarding/step-2-business"
	RoutePlan     Route = "/onboarding/step-3-plan"
	RoutePayment  Route = "/onboarding/step-4-payment"
	RouteSuccess  Route = "/onboarding/success"
)

// RouteForStep maps a wizard step to its page. Unknown steps go back to step 1.
func RouteForStep(step int) Route {
	switch step {
	case StepBusiness:
		return RouteBusiness
	case StepPlan:
		return RoutePlan
	case StepPayment:
		return RoutePayment
	default:
		return RoutePersonal
	}
}

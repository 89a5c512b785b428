package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	"github.com/monynha/botecopro/domains/onboarding/be/repo"
	"github.com/monynha/botecopro/platform/go/events"
	"github.com/monynha/botecopro/platform/go/persistence"
)

type mockGateway struct {
	upsertUserFn   func(ctx context.Context, params persistence.UserParams) ([]persistence.User, error)
	createFn       func(ctx context.Context, b persistence.CreateBotecoParams, m persistence.CreateMembershipParams) (persistence.Boteco, persistence.Membership, error)
	provisionFn    func(ctx context.Context, handle string) error
	compensateFn   func(ctx context.Context, id uuid.UUID, cause error)
	upsertCalls    int
	createCalls    int
	compensatedIDs []uuid.UUID
}

func (m *mockGateway) UpsertUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error) {
	m.upsertCalls++
	return m.upsertUserFn(ctx, params)
}

func (m *mockGateway) CreateBotecoAndAssociate(ctx context.Context, b persistence.CreateBotecoParams, mm persistence.CreateMembershipParams) (persistence.Boteco, persistence.Membership, error) {
	m.createCalls++
	return m.createFn(ctx, b, mm)
}

func (m *mockGateway) ProvisionBoteco(ctx context.Context, handle string) error {
	return m.provisionFn(ctx, handle)
}

func (m *mockGateway) CompensateBoteco(ctx context.Context, id uuid.UUID, cause error) {
	m.compensatedIDs = append(m.compensatedIDs, id)
	if m.compensateFn != nil {
		m.compensateFn(ctx, id, cause)
	}
}

type provisionerFunc func(ctx context.Context, handle string) error

func (f provisionerFunc) Provision(ctx context.Context, handle string) error { return f(ctx, handle) }

func validPersonal() PersonalInfo {
	return PersonalInfo{
		FirstName:   "Ana",
		LastName:    "Silva",
		Email:       "ana@x.com",
		TaxNumber:   "123.456.789-01",
		BirthDate:   "1990-05-01",
		Country:     "Brasil",
		PostalCode:  "12345-678",
		HouseNumber: "100",
	}
}

func strPtr(s string) *string { return &s }

func validBusiness() BusinessForm {
	return BusinessForm{
		PublicName:      strPtr("Bar da Ana"),
		Username:        strPtr("bar_da_ana"),
		TaxNumber:       strPtr("12.345.678/0001-99"),
		ServiceCategory: strPtr("bar"),
		Country:         strPtr(""),
		PostalCode:      strPtr("01310-100"),
		VibeTags:        strPtr("samba, cerveja gelada, ,petiscos,"),
	}
}

func newMemoryController(t *testing.T, provision func(context.Context, string) error) (*Controller, *repo.MemoryRepository, *events.Recorder) {
	t.Helper()

	r := repo.NewMemoryRepository()
	gw := gateway.New(r, provisionerFunc(provision), zaptest.NewLogger(t))
	rec := &events.Recorder{}
	return New(gw, zaptest.NewLogger(t), WithPublisher(rec)), r, rec
}

func TestSubmitPersonalInvalidTaxIDKeepsStep(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	c := New(gw, zaptest.NewLogger(t))
	s := NewSession("s1")

	form := validPersonal()
	form.TaxNumber = "123"
	route, err := c.SubmitPersonal(context.Background(), s, form)

	require.Empty(t, route)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.ErrorIs(t, err, ErrInvalidTaxID)
	require.Equal(t, "CPF ou CNPJ inválido. Verifique os números.", vErr.UserMessage())
	require.Equal(t, StepPersonal, s.CurrentStep)
	require.Zero(t, gw.upsertCalls)
	require.False(t, s.IsLoading)
}

func TestSubmitPersonalValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*PersonalInfo)
		want   error
		msg    string
	}{
		{name: "missing first name", mutate: func(p *PersonalInfo) { p.FirstName = "  " }, want: ErrMissingField, msg: "Por favor, preencha todos os campos."},
		{name: "missing house number", mutate: func(p *PersonalInfo) { p.HouseNumber = "" }, want: ErrMissingField},
		{name: "missing beats bad tax", mutate: func(p *PersonalInfo) { p.TaxNumber = "1"; p.Email = "" }, want: ErrMissingField},
		{name: "bad postal code", mutate: func(p *PersonalInfo) { p.PostalCode = "1234" }, want: ErrInvalidPostalCode, msg: "CEP inválido. Use o formato com 8 dígitos."},
		{name: "tax before postal", mutate: func(p *PersonalInfo) { p.PostalCode = "1"; p.TaxNumber = "1" }, want: ErrInvalidTaxID},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := &mockGateway{}
			c := New(gw, zaptest.NewLogger(t))
			s := NewSession("s")
			form := validPersonal()
			tt.mutate(&form)

			_, err := c.SubmitPersonal(context.Background(), s, form)
			require.ErrorIs(t, err, tt.want)
			if tt.msg != "" {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				require.Equal(t, tt.msg, vErr.UserMessage())
			}
			require.Equal(t, StepPersonal, s.CurrentStep)
			require.Zero(t, gw.upsertCalls)
		})
	}
}

func TestSubmitPersonalSuccess(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	s := NewSession("s")
	gw := &mockGateway{
		upsertUserFn: func(_ context.Context, params persistence.UserParams) ([]persistence.User, error) {
			require.True(t, s.IsLoading, "loading flag is raised during the remote call")
			require.Equal(t, "ana.silva123.", params.Username)
			require.True(t, params.IsOwner)
			require.Equal(t, "Brasil", params.Country)
			return []persistence.User{{ID: userID, Email: params.Email}}, nil
		},
	}
	c := New(gw, zaptest.NewLogger(t))

	form := validPersonal()
	form.FirstName = "  Ana "
	form.Country = " "
	route, err := c.SubmitPersonal(context.Background(), s, form)
	require.NoError(t, err)
	require.Equal(t, RouteBusiness, route)
	require.Equal(t, StepBusiness, s.CurrentStep)
	require.False(t, s.IsLoading)
	require.Equal(t, "Ana", s.Personal.FirstName)
	require.Equal(t, DefaultCountry, s.Personal.Country)
	require.NotNil(t, s.UserID)
	require.Equal(t, userID, *s.UserID)
}

func TestSubmitPersonalGatewayFailures(t *testing.T) {
	t.Parallel()

	t.Run("no data", func(t *testing.T) {
		t.Parallel()

		gw := &mockGateway{upsertUserFn: func(context.Context, persistence.UserParams) ([]persistence.User, error) {
			return nil, nil
		}}
		c := New(gw, zaptest.NewLogger(t))
		s := NewSession("s")

		_, err := c.SubmitPersonal(context.Background(), s, validPersonal())
		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.ErrorIs(t, err, gateway.ErrNoData)
		require.True(t, strings.HasPrefix(stepErr.UserMessage(), "Erro ao salvar dados: "))
		require.Equal(t, StepPersonal, s.CurrentStep)
		require.False(t, s.IsLoading)
		require.Nil(t, s.UserID)
	})

	t.Run("remote error", func(t *testing.T) {
		t.Parallel()

		remote := &gateway.GatewayError{Op: "upsert_user", Err: errors.New("timeout")}
		gw := &mockGateway{upsertUserFn: func(context.Context, persistence.UserParams) ([]persistence.User, error) {
			return nil, remote
		}}
		c := New(gw, zaptest.NewLogger(t))
		s := NewSession("s")

		_, err := c.SubmitPersonal(context.Background(), s, validPersonal())
		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.Equal(t, "Erro ao salvar dados: "+remote.Error(), stepErr.UserMessage())
		require.Equal(t, StepPersonal, s.CurrentStep)
		require.False(t, s.IsLoading)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()

		c := New(gateway.New(nil, nil, zaptest.NewLogger(t)), zaptest.NewLogger(t))
		s := NewSession("s")

		_, err := c.SubmitPersonal(context.Background(), s, validPersonal())
		var cfgErr *gateway.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		require.Equal(t, StepPersonal, s.CurrentStep)
	})
}

func TestSubmitBusinessMergesPartialForms(t *testing.T) {
	t.Parallel()

	c := New(&mockGateway{}, zaptest.NewLogger(t))
	s := NewSession("s")
	s.CurrentStep = StepBusiness

	_, err := c.SubmitBusiness(context.Background(), s, BusinessForm{
		PublicName: strPtr("Bar da Ana"),
		Username:   strPtr("bar_da_ana"),
		VibeTags:   strPtr("samba"),
	})
	require.ErrorIs(t, err, ErrMissingField)
	require.Equal(t, StepBusiness, s.CurrentStep)

	route, err := c.SubmitBusiness(context.Background(), s, BusinessForm{
		TaxNumber:       strPtr("12345678000199"),
		ServiceCategory: strPtr("bar"),
		PostalCode:      strPtr("01310100"),
	})
	require.NoError(t, err)
	require.Equal(t, RoutePlan, route)
	require.Equal(t, StepPlan, s.CurrentStep)
	require.Equal(t, "Bar da Ana", s.Business.PublicName, "fields absent from the second form are kept")
	require.Equal(t, "bar_da_ana", s.Business.Username)
	require.Equal(t, "samba", s.Business.VibeTags)
	require.Equal(t, DefaultCountry, s.Business.Country)
}

func TestSubmitBusinessValidationOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		form BusinessForm
		want error
		msg  string
	}{
		{
			name: "handle first",
			form: BusinessForm{Username: strPtr("a-b"), TaxNumber: strPtr("1"), PostalCode: strPtr("1")},
			want: ErrInvalidHandle,
			msg:  "Username inválido. Use apenas letras, números e underline (min 3 caracteres).",
		},
		{
			name: "then tax",
			form: BusinessForm{TaxNumber: strPtr("1"), PostalCode: strPtr("1")},
			want: ErrInvalidTaxID,
			msg:  "CNPJ do estabelecimento inválido.",
		},
		{
			name: "then postal",
			form: BusinessForm{PostalCode: strPtr("1")},
			want: ErrInvalidPostalCode,
			msg:  "CEP do estabelecimento inválido.",
		},
		{
			name: "empty field",
			form: BusinessForm{ServiceCategory: strPtr(" ")},
			want: ErrMissingField,
			msg:  "Por favor, preencha todos os campos.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(&mockGateway{}, zaptest.NewLogger(t))
			s := NewSession("s")
			s.CurrentStep = StepBusiness
			_, err := c.SubmitBusiness(context.Background(), s, validBusiness())
			require.NoError(t, err)
			s.CurrentStep = StepBusiness

			_, err = c.SubmitBusiness(context.Background(), s, tt.form)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.msg, vErr.UserMessage())
			require.Equal(t, StepBusiness, s.CurrentStep)
		})
	}
}

func TestSubmitPlan(t *testing.T) {
	t.Parallel()

	c := New(&mockGateway{}, zaptest.NewLogger(t))
	s := NewSession("s")
	s.CurrentStep = StepPlan

	_, err := c.SubmitPlan(context.Background(), s)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.ErrorIs(t, err, ErrMissingPlan)
	require.Equal(t, "Por favor, selecione um plano.", vErr.UserMessage())
	require.Equal(t, StepPlan, s.CurrentStep)

	c.SelectPlan(s, " pro ")
	route, err := c.SubmitPlan(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, RoutePayment, route)
	require.Equal(t, StepPayment, s.CurrentStep)
	require.Equal(t, "pro", s.SelectedPlan)
}

func TestGuards(t *testing.T) {
	t.Parallel()

	c := New(&mockGateway{}, zaptest.NewLogger(t))

	s := NewSession("s")
	c.SelectPlan(s, "pro")
	_, err := c.SubmitPlan(context.Background(), s)
	require.ErrorIs(t, err, ErrStepOutOfOrder)
	require.Equal(t, StepPersonal, s.CurrentStep)

	_, err = c.SubmitBusiness(context.Background(), s, validBusiness())
	require.ErrorIs(t, err, ErrStepOutOfOrder)

	s.IsLoading = true
	_, err = c.SubmitPersonal(context.Background(), s, validPersonal())
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	require.True(t, s.IsLoading, "a rejected submit leaves the pending flag alone")
}

func TestSubmitPaymentRequiresUser(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	c := New(gw, zaptest.NewLogger(t))
	s := NewSession("s")
	s.CurrentStep = StepPayment

	_, err := c.SubmitPayment(context.Background(), s)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.ErrorIs(t, err, ErrMissingUser)
	require.Equal(t, "ID do usuário não encontrado. Por favor, volte ao passo 1.", vErr.UserMessage())
	require.Zero(t, gw.createCalls)
	require.False(t, s.IsLoading)
}

func paymentReadySession(userID uuid.UUID) *Session {
	s := NewSession("s")
	s.CurrentStep = StepPayment
	s.UserID = &userID
	s.Personal = validPersonal()
	s.Business = BusinessInfo{
		PublicName:      "Bar da Ana",
		Username:        "bar_da_ana",
		TaxNumber:       "12345678000199",
		ServiceCategory: "bar",
		Country:         "Brasil",
		PostalCode:      "01310100",
		VibeTags:        " samba,,cerveja ",
	}
	s.SelectedPlan = "pro"
	return s
}

func TestSubmitPaymentBuildsPayloads(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	botecoID := uuid.New()
	gw := &mockGateway{
		createFn: func(_ context.Context, b persistence.CreateBotecoParams, m persistence.CreateMembershipParams) (persistence.Boteco, persistence.Membership, error) {
			require.Equal(t, []string{"samba", "cerveja"}, b.VibeTags)
			require.Equal(t, "bar_da_ana", b.Username)
			require.Equal(t, "123.456.789-01", b.OwnerTaxNumber)
			require.Equal(t, "ana@x.com", b.CreatedByEmail)
			require.Equal(t, userID, *b.CreatedByUserID)
			require.Equal(t, OwnerRole, m.AssignedRole)
			require.Equal(t, "pro", m.Plan)
			require.Equal(t, userID, m.UserID)
			return persistence.Boteco{ID: botecoID, Username: b.Username}, persistence.Membership{}, nil
		},
		provisionFn: func(_ context.Context, handle string) error {
			require.Equal(t, "bar_da_ana", handle)
			return nil
		},
	}
	rec := &events.Recorder{}
	c := New(gw, zaptest.NewLogger(t), WithPublisher(rec))
	s := paymentReadySession(userID)

	route, err := c.SubmitPayment(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, RouteSuccess, route)
	require.Empty(t, gw.compensatedIDs)

	published := rec.Events()
	require.Len(t, published, 1)
	require.Equal(t, EventOnboardingCompleted, published[0].Type)
	require.Equal(t, botecoID.String(), published[0].Key)
	require.Equal(t, OnboardingCompleted{UserID: userID, BotecoID: botecoID, BotecoUsername: "bar_da_ana", Plan: "pro"}, published[0].Payload)
}

func TestSubmitPaymentProvisioningFailureDeletesBoteco(t *testing.T) {
	t.Parallel()

	provErr := &gateway.ProvisioningError{Handle: "bar_da_ana", StatusCode: 500}
	c, r, rec := newMemoryController(t, func(context.Context, string) error { return provErr })

	users, err := r.UpsertUser(context.Background(), persistence.UserParams{Email: "ana@x.com"})
	require.NoError(t, err)
	s := paymentReadySession(users[0].ID)

	route, err := c.SubmitPayment(context.Background(), s)
	require.Empty(t, route)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.ErrorIs(t, err, provErr)
	require.Equal(t, "Erro na finalização: "+provErr.Error()+". Tente novamente.", stepErr.UserMessage())

	require.Zero(t, r.BotecoCount(), "boteco is deleted when provisioning fails")
	count, err := r.CountMembershipsByUser(context.Background(), users[0].ID)
	require.NoError(t, err)
	require.Zero(t, count)

	require.Equal(t, StepPayment, s.CurrentStep)
	require.Equal(t, "pro", s.SelectedPlan)
	require.False(t, s.IsLoading)
	require.Empty(t, rec.Events())

	// The step stays retryable and succeeds once provisioning recovers.
	c2 := New(gateway.New(r, provisionerFunc(func(context.Context, string) error { return nil }), zaptest.NewLogger(t)), zaptest.NewLogger(t))
	route, err = c2.SubmitPayment(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, RouteSuccess, route)
	require.Equal(t, 1, r.BotecoCount())
}

func TestSubmitPaymentCreateFailureKeepsStep(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{
		createFn: func(context.Context, persistence.CreateBotecoParams, persistence.CreateMembershipParams) (persistence.Boteco, persistence.Membership, error) {
			return persistence.Boteco{}, persistence.Membership{}, &gateway.GatewayError{Op: "create_tenant", Err: persistence.ErrBotecoConflict}
		},
		provisionFn: func(context.Context, string) error {
			t.Fatal("provisioning must not run when creation fails")
			return nil
		},
	}
	c := New(gw, zaptest.NewLogger(t))
	s := paymentReadySession(uuid.New())

	_, err := c.SubmitPayment(context.Background(), s)
	require.ErrorIs(t, err, persistence.ErrBotecoConflict)
	require.Equal(t, StepPayment, s.CurrentStep)
	require.False(t, s.IsLoading)
	require.Empty(t, gw.compensatedIDs)
}

func TestSubmitPaymentPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	c, r, rec := newMemoryController(t, func(context.Context, string) error { return nil })
	rec.FailWith(errors.New("broker down"))

	users, err := r.UpsertUser(context.Background(), persistence.UserParams{Email: "ana@x.com"})
	require.NoError(t, err)
	s := paymentReadySession(users[0].ID)

	route, err := c.SubmitPayment(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, RouteSuccess, route)
	require.Equal(t, 1, r.BotecoCount())
}

type publisherFunc func(ctx context.Context, event events.Event) error

func (f publisherFunc) Publish(ctx context.Context, event events.Event) error { return f(ctx, event) }

func TestSubmitPaymentDoesNotWaitOnStalledBroker(t *testing.T) {
	t.Parallel()

	var publishErr error
	stalled := publisherFunc(func(ctx context.Context, _ events.Event) error {
		<-ctx.Done()
		publishErr = ctx.Err()
		return publishErr
	})

	r := repo.NewMemoryRepository()
	gw := gateway.New(r, provisionerFunc(func(context.Context, string) error { return nil }), zaptest.NewLogger(t))
	c := New(gw, zaptest.NewLogger(t), WithPublisher(stalled), WithPublishTimeout(20*time.Millisecond))

	users, err := r.UpsertUser(context.Background(), persistence.UserParams{Email: "ana@x.com"})
	require.NoError(t, err)
	s := paymentReadySession(users[0].ID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	route, err := c.SubmitPayment(ctx, s)
	require.NoError(t, err)
	require.Equal(t, RouteSuccess, route)
	require.Less(t, time.Since(start), time.Second)
	require.NoError(t, ctx.Err(), "the request context outlives the publish")
	require.ErrorIs(t, publishErr, context.DeadlineExceeded)
	require.Equal(t, 1, r.BotecoCount())
}

func TestSubmitPaymentPublishesAfterCallerCancels(t *testing.T) {
	t.Parallel()

	var seen error
	publisher := publisherFunc(func(ctx context.Context, _ events.Event) error {
		seen = ctx.Err()
		return nil
	})

	gw := &mockGateway{
		createFn: func(context.Context, persistence.CreateBotecoParams, persistence.CreateMembershipParams) (persistence.Boteco, persistence.Membership, error) {
			return persistence.Boteco{ID: uuid.New(), Username: "bar_da_ana"}, persistence.Membership{}, nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	gw.provisionFn = func(context.Context, string) error {
		// Client disconnects after the boteco is provisioned.
		cancel()
		return nil
	}

	c := New(gw, zaptest.NewLogger(t), WithPublisher(publisher))
	route, err := c.SubmitPayment(ctx, paymentReadySession(uuid.New()))
	require.NoError(t, err)
	require.Equal(t, RouteSuccess, route)
	require.NoError(t, seen)
}

func TestHappyPathEndsOnSuccess(t *testing.T) {
	t.Parallel()

	var provisioned []string
	c, r, rec := newMemoryController(t, func(_ context.Context, handle string) error {
		provisioned = append(provisioned, handle)
		return nil
	})
	ctx := context.Background()
	s := NewSession("s")

	route, err := c.SubmitPersonal(ctx, s, validPersonal())
	require.NoError(t, err)
	require.Equal(t, RouteBusiness, route)

	route, err = c.SubmitBusiness(ctx, s, validBusiness())
	require.NoError(t, err)
	require.Equal(t, RoutePlan, route)
	require.Equal(t, []string{"samba", "cerveja gelada", "petiscos"}, s.Business.Tags())

	c.SelectPlan(s, "pro")
	route, err = c.SubmitPlan(ctx, s)
	require.NoError(t, err)
	require.Equal(t, RoutePayment, route)

	route, err = c.SubmitPayment(ctx, s)
	require.NoError(t, err)
	require.Equal(t, RouteSuccess, route)
	require.Equal(t, StepPersonal, s.CurrentStep)
	require.Empty(t, s.SelectedPlan)
	require.False(t, s.IsLoading)

	require.Equal(t, []string{"bar_da_ana"}, provisioned)
	boteco, ok := r.BotecoByUsername("bar_da_ana")
	require.True(t, ok)
	require.Equal(t, []string{"samba", "cerveja gelada", "petiscos"}, boteco.VibeTags)

	count, err := r.CountMembershipsByUser(ctx, *s.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, rec.Events(), 1)
}

func TestResubmittingEarlierStepDoesNotLowerStep(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	gw := &mockGateway{upsertUserFn: func(context.Context, persistence.UserParams) ([]persistence.User, error) {
		return []persistence.User{{ID: userID}}, nil
	}}
	c := New(gw, zaptest.NewLogger(t))
	s := NewSession("s")
	s.CurrentStep = StepPayment

	route, err := c.SubmitPersonal(context.Background(), s, validPersonal())
	require.NoError(t, err)
	require.Equal(t, RouteBusiness, route)
	require.Equal(t, StepPayment, s.CurrentStep)
}

func TestStepNeverDecreasesNorSkips(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(2024, 4))
	userID := uuid.New()
	gw := &mockGateway{
		upsertUserFn: func(context.Context, persistence.UserParams) ([]persistence.User, error) {
			if rng.IntN(4) == 0 {
				return nil, errors.New("flaky")
			}
			return []persistence.User{{ID: userID}}, nil
		},
		createFn: func(context.Context, persistence.CreateBotecoParams, persistence.CreateMembershipParams) (persistence.Boteco, persistence.Membership, error) {
			return persistence.Boteco{ID: uuid.New()}, persistence.Membership{}, nil
		},
		provisionFn: func(context.Context, string) error {
			if rng.IntN(3) == 0 {
				return errors.New("provisioning down")
			}
			return nil
		},
	}
	c := New(gw, zaptest.NewLogger(t))
	ctx := context.Background()

	for run := 0; run < 50; run++ {
		s := NewSession("s")
		for op := 0; op < 40; op++ {
			before := s.CurrentStep
			var route Route
			var err error

			switch rng.IntN(5) {
			case 0:
				form := validPersonal()
				if rng.IntN(3) == 0 {
					form.TaxNumber = "123"
				}
				route, err = c.SubmitPersonal(ctx, s, form)
			case 1:
				form := validBusiness()
				if rng.IntN(3) == 0 {
					form.Username = strPtr("x")
				}
				route, err = c.SubmitBusiness(ctx, s, form)
			case 2:
				if rng.IntN(2) == 0 {
					c.SelectPlan(s, "pro")
				} else {
					c.SelectPlan(s, "")
				}
				route, err = c.SubmitPlan(ctx, s)
			case 3:
				route, err = c.SubmitPayment(ctx, s)
			case 4:
				s.UserID = nil
				route, err = c.SubmitPayment(ctx, s)
			}

			after := s.CurrentStep
			require.False(t, s.IsLoading)
			if route == RouteSuccess {
				require.NoError(t, err)
				require.Equal(t, StepPayment, before)
				require.Equal(t, StepPersonal, after)
				continue
			}
			if err != nil {
				require.Equal(t, before, after, "failed submits never move the step")
				continue
			}
			require.GreaterOrEqual(t, after, before)
			require.LessOrEqual(t, after, before+1)
		}
	}
}

func TestUsernameHint(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ana.silva1234", UsernameHint("Ana", "Silva", "12345678901"))
	require.Equal(t, "ana.silva12", UsernameHint("Ana", "Silva", "12"))
	require.Equal(t, "ana.silva", UsernameHint("ANA", "SILVA", ""))
}

func TestPrefill(t *testing.T) {
	t.Parallel()

	s := NewSession("s")
	s.CurrentStep = StepPlan
	id := uuid.New()
	s.Prefill(persistence.User{ID: id, FirstName: "Bruno", LastName: "Souza", Email: "bruno@x.com", TaxNumber: "55555555555"})

	require.Equal(t, StepPersonal, s.CurrentStep)
	require.Equal(t, id, *s.UserID)
	require.Equal(t, "Bruno", s.Personal.FirstName)
	require.Equal(t, DefaultCountry, s.Personal.Country)
}

package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	clientrepository "github.com/smallbiznis/hisaab/internal/client/repository"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/hisaab/internal/invoice/repository"
	"github.com/smallbiznis/hisaab/internal/project/domain"
	"github.com/smallbiznis/hisaab/internal/project/repository"
	"github.com/smallbiznis/hisaab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc    domain.Service
	db     *gorm.DB
	client clientdomain.Client
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	clientRepo := clientrepository.Provide()

	now := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
	client := clientdomain.Client{ID: 7, AccountID: testutil.AccountID, Name: "Acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, clientRepo.Insert(testutil.Ctx(), conn, &client))

	return fixture{
		svc: New(Params{
			DB:         conn,
			Log:        testutil.Logger(),
			GenID:      testutil.NewNode(t),
			Clock:      testutil.Clock(2025, time.March, 10, 11, 0),
			Repo:       repository.Provide(),
			ClientRepo: clientRepo,
		}),
		db:     conn,
		client: client,
	}
}

func TestCreateDefaultsToBillable(t *testing.T) {
	f := newFixture(t)

	project, err := f.svc.Create(testutil.Ctx(), domain.CreateProjectRequest{
		Name:     "Website redesign",
		ClientID: f.client.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, project.IsBillable)
	require.NotNil(t, project.ClientID)
	assert.Equal(t, f.client.ID, *project.ClientID)

	internal := false
	project, err = f.svc.Create(testutil.Ctx(), domain.CreateProjectRequest{Name: "Portfolio", IsBillable: &internal})
	require.NoError(t, err)
	assert.False(t, project.IsBillable)
	assert.Nil(t, project.ClientID)
}

func TestCreateRejectsForeignClient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(testutil.CtxFor(2002), domain.CreateProjectRequest{
		Name:     "Website",
		ClientID: f.client.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)

	_, err = f.svc.Create(testutil.Ctx(), domain.CreateProjectRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestListByClient(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.Ctx()

	_, err := f.svc.Create(ctx, domain.CreateProjectRequest{Name: "A", ClientID: f.client.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateProjectRequest{Name: "B"})
	require.NoError(t, err)

	resp, err := f.svc.List(ctx, domain.ListProjectRequest{ClientID: f.client.ID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Projects, 1)
	assert.Equal(t, "A", resp.Projects[0].Name)

	resp, err = f.svc.List(ctx, domain.ListProjectRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Projects, 2)
}

func TestDeleteProjectWithInvoiceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.Ctx()

	project, err := f.svc.Create(ctx, domain.CreateProjectRequest{Name: "Website", ClientID: f.client.ID.String()})
	require.NoError(t, err)

	projectID := project.ID
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, invoicerepository.Provide().Insert(ctx, f.db, &invoicedomain.Invoice{
		ID:            snowflake.ID(900),
		AccountID:     testutil.AccountID,
		InvoiceNumber: "INV-2025-0001",
		ClientID:      f.client.ID,
		ProjectID:     &projectID,
		IssueDate:     day,
		DueDate:       day.AddDate(0, 0, 15),
		Subtotal:      10000,
		GSTAmount:     1800,
		TotalAmount:   11800,
		Status:        invoicedomain.StatusDraft,
		CreatedAt:     day,
		UpdatedAt:     day,
	}))

	err = f.svc.Delete(ctx, project.ID.String())
	require.ErrorIs(t, err, domain.ErrProjectInUse)

	_, err = f.svc.GetByID(ctx, project.ID.String())
	require.NoError(t, err)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.Ctx()

	project, err := f.svc.Create(ctx, domain.CreateProjectRequest{Name: "Website"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, project.ID.String()))
	_, err = f.svc.GetByID(ctx, project.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tokengate/pkg/apperr"
	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/identity"
)

func newService(t *testing.T) (*identity.Service, *identity.MemoryProvider, *docstore.MemoryChannel) {
	t.Helper()
	provider := identity.NewMemoryProvider()
	channel := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = channel.Close() })
	return identity.NewService(provider, channel), provider, channel
}

func TestSignUp_ProvisionsProfileAndCustomerStub(t *testing.T) {
	t.Parallel()

	svc, _, channel := newService(t)

	user, err := svc.SignUp(context.Background(), "a@b.com", "secret1", "secret1")
	require.NoError(t, err)
	require.NotNil(t, user)

	profile, ok := channel.Get(identity.CollectionProfiles, user.ID)
	require.True(t, ok, "profile record must exist")

	balance, ok := profile.Int64("tokenBalance")
	require.True(t, ok)
	assert.Equal(t, int64(10000), balance)

	role, _ := profile.String("role")
	assert.Equal(t, identity.RoleUser, role)

	status, _ := profile.String("status")
	assert.Equal(t, identity.StatusActive, status)

	_, ok = channel.Get(identity.CollectionCustomers, user.ID)
	require.True(t, ok, "billing customer stub must exist")

	assert.Equal(t, int64(10000), user.TokenBalance)
}

// failingBatchChannel simulates a store failure between the two writes of
// the provisioning batch.
type failingBatchChannel struct {
	*docstore.MemoryChannel
}

func (f *failingBatchChannel) CreateBatch(ctx context.Context, writes []docstore.Write) error {
	return errors.New("simulated failure mid-batch")
}

func TestSignUp_BatchFailureLeavesNoPartialRecords(t *testing.T) {
	t.Parallel()

	provider := identity.NewMemoryProvider()
	channel := &failingBatchChannel{MemoryChannel: docstore.NewMemoryChannel()}
	t.Cleanup(func() { _ = channel.Close() })

	svc := identity.NewService(provider, channel)

	_, err := svc.SignUp(context.Background(), "a@b.com", "secret1", "secret1")
	require.Error(t, err)

	var re apperr.RemoteError
	require.ErrorAs(t, err, &re)

	assert.Zero(t, channel.Count(identity.CollectionProfiles))
	assert.Zero(t, channel.Count(identity.CollectionCustomers))
	assert.Nil(t, provider.CurrentUser(), "session must be rolled back")
}

func TestSignUp_Validation(t *testing.T) {
	t.Parallel()

	svc, _, channel := newService(t)

	tests := []struct {
		name            string
		email           string
		password        string
		passwordConfirm string
		field           string
	}{
		{name: "empty email", email: "", password: "secret1", passwordConfirm: "secret1", field: "email"},
		{name: "malformed email", email: "not-an-email", password: "secret1", passwordConfirm: "secret1", field: "email"},
		{name: "short password", email: "a@b.com", password: "abc", passwordConfirm: "abc", field: "password"},
		{name: "password mismatch", email: "a@b.com", password: "secret1", passwordConfirm: "secret2", field: "passwordConfirm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.SignUp(context.Background(), tt.email, tt.password, tt.passwordConfirm)

			var ve apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	// Validation failures never reach the store.
	assert.Zero(t, channel.Count(identity.CollectionProfiles))
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.SignUp(context.Background(), "a@b.com", "secret1", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(context.Background()))

	user, err := svc.SignIn(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
}

func TestSignIn_WrongPasswordMapsToRemoteError(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.SignUp(context.Background(), "a@b.com", "secret1", "secret1")
	require.NoError(t, err)

	_, err = svc.SignIn(context.Background(), "a@b.com", "wrong-password")

	var re apperr.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "wrong-password", re.Code)
}

func TestSignIn_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.SignIn(context.Background(), "ghost@b.com", "whatever")

	var re apperr.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "user-not-found", re.Code)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.SignUp(context.Background(), "a@b.com", "secret1", "secret1")
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), "a@b.com", "secret1", "secret1")

	var re apperr.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "email-already-in-use", re.Code)
}

func TestOnChange_FiresOnAuthTransitions(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	changes := make(chan *identity.User, 16)
	cancel := svc.OnChange(func(u *identity.User) { changes <- u })
	t.Cleanup(cancel)

	assert.Nil(t, <-changes, "immediate delivery of current (signed-out) state")

	_, err := svc.SignUp(context.Background(), "a@b.com", "secret1", "secret1")
	require.NoError(t, err)

	u := <-changes
	require.NotNil(t, u)
	assert.Equal(t, "a@b.com", u.Email)

	require.NoError(t, svc.SignOut(context.Background()))
	assert.Nil(t, <-changes)
}

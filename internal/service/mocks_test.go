package service

import (
	"context"
	"sync"

	"wainbox/internal/models"
)

// Mock account store
type mockAccountStore struct {
	mu sync.Mutex

	accountsByPNI    map[string]*models.TenantAccount
	accountsByTenant map[string]*models.TenantAccount

	lookupErr     error
	replaceErr    error
	deactivateErr error

	replacedAccounts   []*models.TenantAccount
	deactivatedTenants []string
	nextAccountID      int64
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accountsByPNI:    make(map[string]*models.TenantAccount),
		accountsByTenant: make(map[string]*models.TenantAccount),
		nextAccountID:    1,
	}
}

func (m *mockAccountStore) addAccount(account *models.TenantAccount) {
	m.accountsByPNI[account.PhoneNumberID] = account
	m.accountsByTenant[account.TenantID] = account
}

func (m *mockAccountStore) GetActiveAccountByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.TenantAccount, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.accountsByPNI[phoneNumberID], nil
}

func (m *mockAccountStore) GetActiveAccountByTenant(ctx context.Context, tenantID string) (*models.TenantAccount, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.accountsByTenant[tenantID], nil
}

func (m *mockAccountStore) ReplaceActiveAccount(ctx context.Context, account *models.TenantAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	account.ID = m.nextAccountID
	m.nextAccountID++
	account.IsActive = true
	m.accountsByPNI[account.PhoneNumberID] = account
	m.accountsByTenant[account.TenantID] = account
	m.replacedAccounts = append(m.replacedAccounts, account)
	return nil
}

func (m *mockAccountStore) DeactivateAccounts(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deactivateErr != nil {
		return m.deactivateErr
	}
	delete(m.accountsByTenant, tenantID)
	m.deactivatedTenants = append(m.deactivatedTenants, tenantID)
	return nil
}

// Mock message store
type mockMessageStore struct {
	mu sync.Mutex

	saved         []*models.Message
	saveErrByID   map[string]error
	saveErr       error
	statusUpdates []statusUpdate
	statusErr     error
	listResult    []*models.Message
	listErr       error
}

type statusUpdate struct {
	tenantAccountID   int64
	platformMessageID string
	status            models.MessageStatus
}

func newMockMessageStore() *mockMessageStore {
	return &mockMessageStore{
		saveErrByID: make(map[string]error),
	}
}

func (m *mockMessageStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.saveErrByID[msg.PlatformMessageID]; ok {
		return err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, msg)
	return nil
}

func (m *mockMessageStore) UpdateMessageStatus(ctx context.Context, tenantAccountID int64, platformMessageID string, status models.MessageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statusUpdates = append(m.statusUpdates, statusUpdate{tenantAccountID, platformMessageID, status})
	return nil
}

func (m *mockMessageStore) ListMessages(ctx context.Context, tenantAccountID int64, limit int) ([]*models.Message, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listResult, nil
}

// Mock Graph API client
type mockGraphClient struct {
	exchangeToken string
	exchangeErr   error
	exchangedCode string

	waba    *models.BusinessAccount
	wabaErr error

	phone    *models.PhoneNumberInfo
	phoneErr error
}

func (m *mockGraphClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	m.exchangedCode = code
	if m.exchangeErr != nil {
		return "", m.exchangeErr
	}
	return m.exchangeToken, nil
}

func (m *mockGraphClient) GetBusinessAccount(ctx context.Context, wabaID, accessToken string) (*models.BusinessAccount, error) {
	if m.wabaErr != nil {
		return nil, m.wabaErr
	}
	return m.waba, nil
}

func (m *mockGraphClient) GetPhoneNumber(ctx context.Context, phoneNumberID, accessToken string) (*models.PhoneNumberInfo, error) {
	if m.phoneErr != nil {
		return nil, m.phoneErr
	}
	return m.phone, nil
}

package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/go-resty/resty/v2"
)

// HTTPStore implements Store over the backend's REST API.
type HTTPStore struct {
	http    *resty.Client
	baseURL string

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &HTTPStore{http: c, baseURL: baseURL}
}

func (s *HTTPStore) Close() error { return nil }

func (s *HTTPStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func (s *HTTPStore) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *HTTPStore) Register(ctx context.Context, email, password string) error {
	return s.doPublic(ctx, "POST", "/api/auth/register",
		map[string]string{"email": email, "password": password}, nil)
}

func (s *HTTPStore) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair TokenPair
	err := s.doPublic(ctx, "POST", "/api/auth/login",
		map[string]string{"email": email, "password": password}, &pair)
	if err != nil {
		return nil, err
	}
	s.SetTokens(pair.AccessToken, pair.RefreshToken)
	return &pair, nil
}

func (s *HTTPStore) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	err := s.doPublic(ctx, "POST", "/api/auth/refresh",
		map[string]string{"refreshToken": refreshToken}, &pair)
	if err != nil {
		return nil, err
	}
	s.SetTokens(pair.AccessToken, pair.RefreshToken)
	return &pair, nil
}

func (s *HTTPStore) UpsertProfile(ctx context.Context, dto ProfileDTO) (*ProfileDTO, error) {
	var result ProfileDTO
	if err := s.do(ctx, "POST", "/api/profiles", dto, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *HTTPStore) ListProfiles(ctx context.Context) ([]ProfileDTO, error) {
	var result []ProfileDTO
	if err := s.do(ctx, "GET", "/api/profiles", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *HTTPStore) GetProfile(ctx context.Context, remoteId string) (*ProfileDTO, error) {
	var result ProfileDTO
	if err := s.do(ctx, "GET", "/api/profiles/"+remoteId, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *HTTPStore) UpsertMedication(ctx context.Context, profileRemoteId string, dto MedicationDTO) (*MedicationDTO, error) {
	var result MedicationDTO
	path := "/api/profiles/" + profileRemoteId + "/medications"
	if err := s.do(ctx, "POST", path, dto, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *HTTPStore) ListMedications(ctx context.Context, profileRemoteId string) ([]MedicationDTO, error) {
	var result []MedicationDTO
	path := "/api/profiles/" + profileRemoteId + "/medications"
	if err := s.do(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *HTTPStore) UpsertIntake(ctx context.Context, profileRemoteId string, dto IntakeDTO) (*IntakeDTO, error) {
	var result IntakeDTO
	path := "/api/profiles/" + profileRemoteId + "/intakes"
	if err := s.do(ctx, "POST", path, dto, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *HTTPStore) ListIntakes(ctx context.Context, profileRemoteId string) ([]IntakeDTO, error) {
	var result []IntakeDTO
	path := "/api/profiles/" + profileRemoteId + "/intakes"
	if err := s.do(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *HTTPStore) CreateInvitation(ctx context.Context, profileRemoteId string, role models.Role) (*models.Invitation, error) {
	var dto InvitationDTO
	body := map[string]string{"profileId": profileRemoteId, "role": string(role)}
	if err := s.do(ctx, "POST", "/api/invitations", body, &dto); err != nil {
		return nil, err
	}
	inv := dto.ToModel()
	return &inv, nil
}

func (s *HTTPStore) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	var dto InvitationDTO
	if err := s.do(ctx, "GET", "/api/invitations/"+id, nil, &dto); err != nil {
		return nil, err
	}
	inv := dto.ToModel()
	return &inv, nil
}

func (s *HTTPStore) AcceptInvitation(ctx context.Context, id, token string) (string, error) {
	var result struct {
		ProfileId string `json:"profileId"`
	}
	body := map[string]string{"token": token}
	if err := s.do(ctx, "POST", "/api/invitations/"+id+"/accept", body, &result); err != nil {
		return "", err
	}
	return result.ProfileId, nil
}

func (s *HTTPStore) CancelInvitation(ctx context.Context, id string) error {
	return s.do(ctx, "DELETE", "/api/invitations/"+id, nil, nil)
}

// do executes an authenticated request. On 401 it refreshes the token pair
// once and retries; a second 401 surfaces ErrUnauthorized.
func (s *HTTPStore) do(ctx context.Context, method, path string, body, result any) error {
	access, refresh := s.tokens()
	err := s.execute(ctx, method, path, access, body, result)
	if err == nil || !errors.Is(err, ErrUnauthorized) || refresh == "" {
		return err
	}
	if _, rerr := s.Refresh(ctx, refresh); rerr != nil {
		return fmt.Errorf("token refresh failed: %w", rerr)
	}
	access, _ = s.tokens()
	return s.execute(ctx, method, path, access, body, result)
}

func (s *HTTPStore) doPublic(ctx context.Context, method, path string, body, result any) error {
	return s.execute(ctx, method, path, "", body, result)
}

func (s *HTTPStore) execute(ctx context.Context, method, path, token string, body, result any) error {
	req := s.http.R().SetContext(ctx)
	if token != "" {
		req.SetHeader(common.AuthHeaderName, common.BearerPrefix+token)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	var apiErr apiError
	req.SetError(&apiErr)

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return decodeAPIError(resp.StatusCode(), apiErr)
	}
	return nil
}

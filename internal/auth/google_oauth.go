package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/thriftease/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// StrategyGoogle はGoogle OAuth認証の登録名。
const StrategyGoogle = "google"

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Provider       string // "google" 等
}

// AccountResolver は外部プロフィールをローカルユーザーに対応付ける。
// 未登録の場合はユーザーを作成する。
type AccountResolver interface {
	ResolveOAuthUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error)
}

// GoogleOAuthConfig はGoogle OAuthストラテジーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// HTTPClient はトークン交換とユーザー情報取得に使うクライアント。nilの場合はデフォルト。
	HTTPClient *http.Client
}

// GoogleStrategy はGoogle OAuth 2.0の認可コードフローで認証するストラテジー。
type GoogleStrategy struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	accounts    AccountResolver
}

// NewGoogleStrategy はGoogleStrategyを生成する。
func NewGoogleStrategy(config GoogleOAuthConfig, accounts AccountResolver) *GoogleStrategy {
	endpoint := google.Endpoint
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}
	userInfoURL := config.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}

	return &GoogleStrategy{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  config.HTTPClient,
		accounts:    accounts,
	}
}

// Name はストラテジー名を返す。
func (s *GoogleStrategy) Name() string {
	return StrategyGoogle
}

// AuthCodeURL はGoogle OAuthの認可URLを生成する。
// スコープにはopenid, email, profileを含む。
func (s *GoogleStrategy) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Attempt はOAuthコールバックを処理する。
// stateの検証、認可コードの交換、プロフィールのローカルユーザーへの対応付けを行う。
// プロバイダー側の失敗はすべてErrUpstreamAuthFailureとして返す。
func (s *GoogleStrategy) Attempt(ctx context.Context, r *http.Request) (*model.Principal, error) {
	q := r.URL.Query()

	// 1. 同意拒否などプロバイダーが返したエラー
	if e := q.Get("error"); e != "" {
		return nil, fmt.Errorf("%w: provider returned %q", model.ErrUpstreamAuthFailure, e)
	}

	// 2. stateの検証（CSRF対策）
	state := q.Get("state")
	stateCookie, err := r.Cookie(OAuthStateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		return nil, fmt.Errorf("%w: oauth state mismatch", model.ErrUpstreamAuthFailure)
	}

	// 3. 認可コードの取得
	code := q.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", model.ErrUpstreamAuthFailure)
	}

	// 4. トークン交換とユーザー情報取得
	info, err := s.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamAuthFailure, err)
	}

	// 5. ローカルユーザーへの対応付け
	user, err := s.accounts.ResolveOAuthUser(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve oauth user: %w", err)
	}

	return model.NewPrincipal(user), nil
}

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (s *GoogleStrategy) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return &OAuthUserInfo{
		ProviderUserID: userInfo.Sub,
		Email:          userInfo.Email,
		EmailVerified:  userInfo.EmailVerified,
		Name:           userInfo.Name,
		Provider:       model.ProviderGoogle,
	}, nil
}

// fetchUserInfo はアクセストークンでGoogleのユーザー情報を取得する。
func (s *GoogleStrategy) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfo.Sub == "" {
		return nil, fmt.Errorf("empty sub in user info response")
	}

	return &userInfo, nil
}

// compile-time interface check
var (
	_ Strategy   = (*GoogleStrategy)(nil)
	_ Redirector = (*GoogleStrategy)(nil)
)

package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"artifact_registry/registry/services"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return &statusError{status: res.StatusCode, content: w.Body.String(), method: r.method, endpoint: r.endpoint}
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

var ErrUnauthorized = errors.New("unauthorized")

type statusError struct {
	status   int
	content  string
	method   string
	endpoint string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v request to endpoint %v returned status %d, content '%v'", e.method, e.endpoint, e.status, e.content)
}

// hasStatus checks if an error is a request that failed with the given status.
func hasStatus(err error, status int) bool {
	var serr *statusError
	return errors.As(err, &serr) && serr.status == status
}

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) signup(email, password string) (loginInfo, error) {
	body := map[string]string{"email": email, "password": password}

	err := c.Post("/user/signup").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Get("/user/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["access_token"]
	c.userId = res["user_id"]

	return nil
}

func (c *client) userInfo() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/user/info").Do(&res)
	return res, err
}

func (c *client) createArtifact(title, artifactType, visibility string) (services.ArtifactInfo, error) {
	body := map[string]string{
		"title": title, "type": artifactType, "visibility": visibility,
	}

	var res services.ArtifactInfo
	err := c.Post("/artifact/").Json(body).Do(&res)
	return res, err
}

func (c *client) listArtifacts() ([]services.ArtifactInfo, error) {
	var res []services.ArtifactInfo
	err := c.Get("/artifact/list").Do(&res)
	return res, err
}

func (c *client) myArtifacts() ([]services.ArtifactInfo, error) {
	var res []services.ArtifactInfo
	err := c.Get("/artifact/mine").Do(&res)
	return res, err
}

func (c *client) createVersion(artifactId, version, changelog string) (services.VersionInfo, error) {
	body := map[string]string{"version": version, "changelog": changelog}

	var res services.VersionInfo
	err := c.Post(fmt.Sprintf("/artifact/%v/version", artifactId)).Json(body).Do(&res)
	return res, err
}

func (c *client) listVersions(artifactId string) ([]services.VersionInfo, error) {
	var res []services.VersionInfo
	err := c.Get(fmt.Sprintf("/artifact/%v/versions", artifactId)).Do(&res)
	return res, err
}

func (c *client) shareArtifact(artifactId, email string) (services.ShareInfo, error) {
	body := map[string]string{"email": email}

	var res services.ShareInfo
	err := c.Post(fmt.Sprintf("/artifact/%v/share", artifactId)).Json(body).Do(&res)
	return res, err
}

func (c *client) listShares(artifactId string) ([]services.ShareInfo, error) {
	var res []services.ShareInfo
	err := c.Get(fmt.Sprintf("/artifact/%v/shares", artifactId)).Do(&res)
	return res, err
}

func (c *client) uploadFile(versionId, filename string, data []byte) (services.FileInfo, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return services.FileInfo{}, err
	}
	if _, err := part.Write(data); err != nil {
		return services.FileInfo{}, err
	}
	if err := writer.Close(); err != nil {
		return services.FileInfo{}, err
	}

	var res services.FileInfo
	err = c.Post(fmt.Sprintf("/version/%v/upload", versionId)).
		Header("Content-Type", writer.FormDataContentType()).
		Body(body).
		Do(&res)
	return res, err
}

func (c *client) listFiles(versionId string) ([]services.FileInfo, error) {
	var res []services.FileInfo
	err := c.Get(fmt.Sprintf("/version/%v/files", versionId)).Do(&res)
	return res, err
}

func (c *client) downloadFile(fileId string) ([]byte, error) {
	endpoint := fmt.Sprintf("/file/%v", fileId)
	req := httptest.NewRequest("GET", endpoint, nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", c.authToken))
	w := httptest.NewRecorder()
	c.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, &statusError{status: res.StatusCode, content: w.Body.String(), method: "GET", endpoint: endpoint}
	}

	dst := new(bytes.Buffer)
	if _, err := io.Copy(dst, w.Body); err != nil {
		return nil, err
	}

	return dst.Bytes(), nil
}

func (c *client) deleteFile(fileId string) error {
	return c.Delete(fmt.Sprintf("/file/%v", fileId)).Do(nil)
}

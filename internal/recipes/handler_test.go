package recipes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"recipehub/internal/auth"
	"recipehub/internal/reading"
	"recipehub/internal/search"
	"recipehub/internal/testutil"
	"recipehub/pkg/models"
)

var testTokens = auth.TokenService{Secret: []byte("test-secret"), Issuer: "recipehub-test", Duration: time.Hour}

type fakeLikes map[int64]bool

func (f fakeLikes) LikedSet(_ context.Context, _ int64, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = f[id]
	}
	return out, nil
}

type fixture struct {
	router     *gin.Engine
	db         *gorm.DB
	repo       *Repo
	adminID    int64
	adminToken string
	userToken  string
}

func newFixture(t *testing.T, likes LikeLookup) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB := testutil.OpenDB(t)
	gdb := testutil.Gorm(t, sqlDB)
	n := reading.New(nil)
	if err := search.RegisterHook(gdb, search.NewIndexer(n, nil)); err != nil {
		t.Fatalf("register hook: %v", err)
	}

	f := &fixture{db: gdb}
	f.adminID = testutil.SeedUser(t, sqlDB, "admin-uid", "Admin", models.RoleAdmin)
	testutil.SeedUser(t, sqlDB, "user-uid", "User", models.RoleUser)
	f.adminToken = sign(t, "admin-uid")
	f.userToken = sign(t, "user-uid")

	f.repo = NewRepo(gdb, search.NewMatcher(n, nil))
	h := NewHandler(f.repo, likes, nil)
	authRepo := auth.NewRepo(sqlDB)

	r := gin.New()
	api := r.Group("/api")
	h.RegisterPublicRoutes(api)
	h.RegisterProtectedRoutes(api.Group("", auth.Middleware(testTokens, authRepo)))
	h.RegisterAdminRoutes(api.Group("/admin", auth.Middleware(testTokens, authRepo), auth.AdminOnly()))
	f.router = r
	return f
}

func sign(t *testing.T, uid string) string {
	t.Helper()
	s, _, err := testTokens.Sign(auth.Identity{UID: uid, Name: uid})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (f *fixture) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
	return v
}

func (f *fixture) create(t *testing.T, req recipeReq) models.Recipe {
	t.Helper()
	if req.Servings == "" {
		req.Servings = "2人分"
	}
	if req.Ingredients == "" {
		req.Ingredients = "塩"
	}
	if req.Instructions == "" {
		req.Instructions = "混ぜる"
	}
	w := f.do(t, http.MethodPost, "/api/admin/recipes", f.adminToken, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q = %d %s", req.Title, w.Code, w.Body)
	}
	return decode[models.Recipe](t, w)
}

func titles(p Page) []string {
	out := make([]string, 0, len(p.Data))
	for _, r := range p.Data {
		out = append(out, r.Title)
	}
	return out
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, nil)
	long := string(bytes.Repeat([]byte("あ"), 256))
	tests := []struct {
		name string
		req  recipeReq
	}{
		{"missing title", recipeReq{Servings: "1人分", Ingredients: "a", Instructions: "b"}},
		{"long title", recipeReq{Title: long, Servings: "1人分", Ingredients: "a", Instructions: "b"}},
		{"bad servings", recipeReq{Title: "x", Servings: "6人分", Ingredients: "a", Instructions: "b"}},
		{"missing ingredients", recipeReq{Title: "x", Servings: "1人分", Instructions: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/admin/recipes", f.adminToken, tt.req)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d", w.Code)
			}
		})
	}
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	f := newFixture(t, nil)
	if w := f.do(t, http.MethodGet, "/api/admin/recipes", f.userToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("user on admin list = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/admin/recipes", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous on admin list = %d", w.Code)
	}
}

func TestCreate_IndexesAndSearches(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.create(t, recipeReq{Title: "チキンカレー", Genre: "洋食", Ingredients: "鶏肉 にんじん"})
	if rec.AdminID != f.adminID || !rec.IsPublished {
		t.Fatalf("created = %+v", rec)
	}

	var stored models.Recipe
	if err := f.db.First(&stored, rec.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.SearchReading == nil || *stored.SearchReading == "" {
		t.Fatal("search_reading not stored")
	}

	w := f.do(t, http.MethodGet, "/api/recipes?keyword=ちきんかれー", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	if got := titles(decode[Page](t, w)); len(got) != 1 || got[0] != "チキンカレー" {
		t.Fatalf("search ちきんかれー = %q", got)
	}
}

func TestList_PublishedPaginatedNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	hidden := false
	for i := 1; i <= 10; i++ {
		f.create(t, recipeReq{Title: "料理" + strconv.Itoa(i)})
	}
	f.create(t, recipeReq{Title: "下書き", IsPublished: &hidden})

	p := decode[Page](t, f.do(t, http.MethodGet, "/api/recipes", "", nil))
	if p.Total != 10 || p.PerPage != 9 || p.LastPage != 2 || len(p.Data) != 9 {
		t.Fatalf("page 1 = total %d per %d last %d len %d", p.Total, p.PerPage, p.LastPage, len(p.Data))
	}
	if p.Data[0].Title != "料理10" {
		t.Fatalf("first = %q, want newest", p.Data[0].Title)
	}

	p = decode[Page](t, f.do(t, http.MethodGet, "/api/recipes?page=2", "", nil))
	if len(p.Data) != 1 || p.CurrentPage != 2 {
		t.Fatalf("page 2 = %d items, current %d", len(p.Data), p.CurrentPage)
	}

	admin := decode[Page](t, f.do(t, http.MethodGet, "/api/admin/recipes?per_page=20", f.adminToken, nil))
	if admin.Total != 11 {
		t.Fatalf("admin total = %d, want drafts included", admin.Total)
	}
}

func TestSearch_GenreAndKeyword(t *testing.T) {
	f := newFixture(t, nil)
	f.create(t, recipeReq{Title: "鶏肉カレー", Genre: "洋食"})
	f.create(t, recipeReq{Title: "鶏肉炒め", Genre: "中華"})
	f.create(t, recipeReq{Title: "親子丼", Genre: "和食", Ingredients: "鶏肉 卵"})

	tests := []struct {
		query string
		want  int
	}{
		{"/api/recipes/search?keyword=鶏肉", 3},
		{"/api/recipes/search?keyword=鶏肉+カレー", 1},
		{"/api/recipes/search?keyword=鶏肉&genre=中華", 1},
		{"/api/recipes/search?keyword=存在しない文字列", 0},
		{"/api/recipes/search", 3},
	}
	for _, tt := range tests {
		p := decode[Page](t, f.do(t, http.MethodGet, tt.query, "", nil))
		if int(p.Total) != tt.want {
			t.Errorf("%s total = %d, want %d", tt.query, p.Total, tt.want)
		}
	}
}

func TestShow_IncrementsViewsAndReportsLike(t *testing.T) {
	likes := fakeLikes{}
	f := newFixture(t, likes)
	rec := f.create(t, recipeReq{Title: "肉じゃが"})
	likes[rec.ID] = true

	path := "/api/recipes/" + strconv.FormatInt(rec.ID, 10)
	for i := 1; i <= 2; i++ {
		w := f.do(t, http.MethodGet, path, f.userToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("show = %d", w.Code)
		}
		v := decode[recipeView](t, w)
		if v.ViewsCount != i || !v.IsLiked {
			t.Fatalf("view %d: views %d liked %v", i, v.ViewsCount, v.IsLiked)
		}
	}
	if w := f.do(t, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous show = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/recipes/999", f.userToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing show = %d", w.Code)
	}
}

func TestUpdate_ReindexesReading(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.create(t, recipeReq{Title: "カレー"})
	path := "/api/admin/recipes/" + strconv.FormatInt(rec.ID, 10)

	w := f.do(t, http.MethodPut, path, f.adminToken, recipeReq{
		Title: "シチュー", Servings: "4人分", Ingredients: "牛乳", Instructions: "煮込む",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %s", w.Code, w.Body)
	}

	if p := decode[Page](t, f.do(t, http.MethodGet, "/api/recipes?keyword=かれー", "", nil)); p.Total != 0 {
		t.Fatalf("old title still matches: %q", titles(p))
	}
	if p := decode[Page](t, f.do(t, http.MethodGet, "/api/recipes?keyword=しちゅー", "", nil)); p.Total != 1 {
		t.Fatalf("new title not found")
	}
}

func TestDeleteRestoreForceDelete(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.create(t, recipeReq{Title: "ハンバーグ"})
	path := "/api/admin/recipes/" + strconv.FormatInt(rec.ID, 10)

	if w := f.do(t, http.MethodDelete, path, f.adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if p := decode[Page](t, f.do(t, http.MethodGet, "/api/recipes", "", nil)); p.Total != 0 {
		t.Fatal("trashed recipe still public")
	}
	if w := f.do(t, http.MethodGet, path, f.adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("admin show trashed = %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, path, f.adminToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", w.Code)
	}

	if w := f.do(t, http.MethodPost, path+"/restore", f.adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("restore = %d", w.Code)
	}
	if p := decode[Page](t, f.do(t, http.MethodGet, "/api/recipes", "", nil)); p.Total != 1 {
		t.Fatal("restored recipe not public")
	}
	if w := f.do(t, http.MethodPost, path+"/restore", f.adminToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("restore live recipe = %d", w.Code)
	}

	if w := f.do(t, http.MethodDelete, path+"/permanent-delete", f.adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("force delete = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, path, f.adminToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("admin show after force delete = %d", w.Code)
	}
}

func TestUserRecipes_IsLiked(t *testing.T) {
	likes := fakeLikes{}
	f := newFixture(t, likes)
	a := f.create(t, recipeReq{Title: "A"})
	f.create(t, recipeReq{Title: "B"})
	likes[a.ID] = true

	p := decode[viewPage](t, f.do(t, http.MethodGet, "/api/user/recipes", f.userToken, nil))
	if p.Total != 2 {
		t.Fatalf("total = %d", p.Total)
	}
	for _, v := range p.Data {
		if v.IsLiked != (v.ID == a.ID) {
			t.Errorf("%s is_liked = %v", v.Title, v.IsLiked)
		}
	}
}

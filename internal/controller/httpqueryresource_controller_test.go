package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	httpv1alpha1 "github.com/konnektr-io/http-request-operator/api/v1alpha1"
	"github.com/konnektr-io/http-request-operator/internal/util"
)

const (
	ResourceNamespace = "default"
	pollInterval      = 10 * time.Second
)

const userTemplate = `apiVersion: v1
kind: ConfigMap
metadata:
  name: user-cm-{{ .Item.id }}
  namespace: default
  labels:
    user-name: {{ .Item.name | lower }}
data:
  greeting: "Hello, {{ .Item.name | title }}! You are {{ .Item.age }} years old."
  id: "{{ .Item.id }}"
  age: "{{ .Item.age }}"`

func newHTTPQueryResource(name, url string) *httpv1alpha1.HTTPQueryResource {
	return &httpv1alpha1.HTTPQueryResource{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: ResourceNamespace,
		},
		Spec: httpv1alpha1.HTTPQueryResourceSpec{
			PollInterval: pollInterval.String(),
			Prune:        ptrBool(true),
			Request: httpv1alpha1.HTTPRequestSpec{
				Method: "GET",
				URL:    url,
			},
			Template: userTemplate,
		},
	}
}

func getConfigMap(c client.Client, name string) (*corev1.ConfigMap, error) {
	cm := &corev1.ConfigMap{}
	err := c.Get(ctx, types.NamespacedName{Name: name, Namespace: ResourceNamespace}, cm)
	return cm, err
}

func getResource(c client.Client, name string) *httpv1alpha1.HTTPQueryResource {
	hqr := &httpv1alpha1.HTTPQueryResource{}
	Expect(c.Get(ctx, types.NamespacedName{Name: name, Namespace: ResourceNamespace}, hqr)).To(Succeed())
	return hqr
}

func expectCondition(hqr *httpv1alpha1.HTTPQueryResource, conditionType string, status metav1.ConditionStatus, reason string) {
	cond := meta.FindStatusCondition(hqr.Status.Conditions, conditionType)
	ExpectWithOffset(1, cond).NotTo(BeNil(), "condition %s is missing", conditionType)
	ExpectWithOffset(1, cond.Status).To(Equal(status), cond.Message)
	ExpectWithOffset(1, cond.Reason).To(Equal(reason), cond.Message)
}

func rawInput(v any) runtime.RawExtension {
	raw, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return runtime.RawExtension{Raw: raw}
}

var _ = Describe("HTTPQueryResource controller", func() {
	Describe("When reconciling an HTTPQueryResource", func() {
		It("Should create a ConfigMap per record with correct labels, owner and status", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/users", http.StatusOK, `[
				{"id": 1, "name": "alice", "age": 30},
				{"id": 2, "name": "bob", "age": 25}
			]`)

			hqr := newHTTPQueryResource("mock-hqr", mockServer.URL()+"/users")
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(pollInterval))

			for _, id := range []string{"1", "2"} {
				cm, err := getConfigMap(k8sClient, "user-cm-"+id)
				Expect(err).NotTo(HaveOccurred())
				Expect(cm.GetLabels()).To(HaveKeyWithValue(ManagedByLabel, "mock-hqr"))
				Expect(cm.GetAnnotations()).To(HaveKeyWithValue(util.PairedItemAnnotation, "0"))
				Expect(cm.Data).To(HaveKeyWithValue("id", id))
				Expect(cm.OwnerReferences).To(HaveLen(1))
				Expect(cm.OwnerReferences[0].Name).To(Equal("mock-hqr"))
				Expect(*cm.OwnerReferences[0].Controller).To(BeTrue())
			}

			updated := getResource(k8sClient, "mock-hqr")
			Expect(updated.Finalizers).To(ContainElement(HTTPQueryFinalizer))
			expectCondition(updated, ConditionReconciled, metav1.ConditionTrue, "Success")
			expectCondition(updated, ConditionHTTPConnected, metav1.ConditionTrue, "Connected")
			Expect(updated.Status.LastOutputCount).To(Equal(2))
			Expect(updated.Status.LastPollTime).NotTo(BeNil())
			Expect(updated.Status.ManagedResources).To(Equal([]string{
				"/ConfigMap/default/user-cm-1",
				"/ConfigMap/default/user-cm-2",
			}))

			requests := mockServer.GetRequests()
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].Method).To(Equal("GET"))
			Expect(requests[0].Headers).To(HaveKeyWithValue("Accept", "application/json,text/html,application/xhtml+xml,application/xml,text/*;q=0.9, image/*;q=0.8, */*;q=0.7"))
		})

		It("should update resources for each record and prune stale ones", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/users", http.StatusOK, `[
				{"id": 1, "name": "Alice", "age": 30},
				{"id": 2, "name": "Bob", "age": 25},
				{"id": 3, "name": "Charlie", "age": 40}
			]`)

			hqr := newHTTPQueryResource("prune-hqr", mockServer.URL()+"/users")
			r, k8sClient := newTestReconciler(hqr)

			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			for _, id := range []int{1, 2, 3} {
				_, err := getConfigMap(k8sClient, "user-cm-"+strconv.Itoa(id))
				Expect(err).NotTo(HaveOccurred())
			}

			// Bob's age changes, Charlie disappears
			mockServer.SetJSON("/users", http.StatusOK, `[
				{"id": 1, "name": "Alice", "age": 30},
				{"id": 2, "name": "Bob", "age": 26}
			]`)
			_, err = reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			bob, err := getConfigMap(k8sClient, "user-cm-2")
			Expect(err).NotTo(HaveOccurred())
			greeting := "Hello, " + cases.Title(language.English).String("bob") + "! You are 26 years old."
			Expect(bob.Data).To(HaveKeyWithValue("greeting", greeting))
			Expect(bob.Data).To(HaveKeyWithValue("age", "26"))
			Expect(bob.GetLabels()).To(HaveKeyWithValue("user-name", "bob"))

			_, err = getConfigMap(k8sClient, "user-cm-3")
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			updated := getResource(k8sClient, "prune-hqr")
			Expect(updated.Status.ManagedResources).To(HaveLen(2))
			Expect(updated.Status.LastOutputCount).To(Equal(2))
		})

		It("should keep stale resources when prune is disabled", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/users", http.StatusOK, `[{"id": 1, "name": "Alice", "age": 30}, {"id": 2, "name": "Bob", "age": 25}]`)

			hqr := newHTTPQueryResource("noprune-hqr", mockServer.URL()+"/users")
			hqr.Spec.Prune = ptrBool(false)
			r, k8sClient := newTestReconciler(hqr)

			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			mockServer.SetJSON("/users", http.StatusOK, `[{"id": 1, "name": "Alice", "age": 30}]`)
			_, err = reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			for _, id := range []int{1, 2} {
				_, err := getConfigMap(k8sClient, "user-cm-"+strconv.Itoa(id))
				Expect(err).NotTo(HaveOccurred(), "ConfigMap %d should still exist", id)
			}
		})

		It("should extract data from nested JSON responses using responsePath", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/api/v1/users", http.StatusOK, `{
				"status": "success",
				"data": {"users": [{"id": 7, "name": "Grace", "age": 85}], "total": 1}
			}`)

			hqr := newHTTPQueryResource("nested-hqr", mockServer.URL()+"/api/v1/users")
			hqr.Spec.Request.ResponsePath = "data.users"
			r, k8sClient := newTestReconciler(hqr)

			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			cm, err := getConfigMap(k8sClient, "user-cm-7")
			Expect(err).NotTo(HaveOccurred())
			Expect(cm.Data).To(HaveKeyWithValue("greeting", "Hello, Grace! You are 85 years old."))
		})

		It("should request once per input and turn failures into error records with continueOnFail", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/users/1", http.StatusOK, `{"id": 1, "name": "Alice", "age": 30}`)
			mockServer.SetJSON("/users/2", http.StatusInternalServerError, `{"message": "boom"}`)

			hqr := newHTTPQueryResource("inputs-hqr", "="+mockServer.URL()+"/users/{{ .json.id }}")
			hqr.Spec.Inputs = []runtime.RawExtension{rawInput(map[string]any{"id": 1}), rawInput(map[string]any{"id": 2})}
			hqr.Spec.ContinueOnFail = true
			hqr.Spec.Template = `apiVersion: v1
kind: ConfigMap
metadata:
{{- if .Error }}
  name: failed-input-{{ .PairedItem }}
data:
  error: {{ .Error | quote }}
{{- else }}
  name: user-cm-{{ .Item.id }}
data:
  name: {{ .Item.name | quote }}
{{- end }}`
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(pollInterval))

			alice, err := getConfigMap(k8sClient, "user-cm-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(alice.Data).To(HaveKeyWithValue("name", "Alice"))
			Expect(alice.GetAnnotations()).To(HaveKeyWithValue(util.PairedItemAnnotation, "0"))

			failed, err := getConfigMap(k8sClient, "failed-input-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(failed.Data["error"]).To(ContainSubstring("500"))

			paths := []string{}
			for _, req := range mockServer.GetRequests() {
				paths = append(paths, req.URL)
			}
			Expect(paths).To(ConsistOf("/users/1", "/users/2"))

			updated := getResource(k8sClient, "inputs-hqr")
			expectCondition(updated, ConditionReconciled, metav1.ConditionTrue, "Success")
			Expect(updated.Status.LastOutputCount).To(Equal(2))
		})

		It("should follow pages until the response is empty", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetHandler("/users", func(r *http.Request) MockResponse {
				page, _ := strconv.Atoi(r.URL.Query().Get("page"))
				body := "[]"
				if page < 3 {
					body = fmt.Sprintf(`[{"id": %d, "name": "user%d", "age": %d}]`, page, page, 20+page)
				}
				return MockResponse{StatusCode: http.StatusOK, Body: body, Headers: map[string]string{"Content-Type": "application/json"}}
			})

			hqr := newHTTPQueryResource("paged-hqr", mockServer.URL()+"/users")
			hqr.Spec.Request.SendQuery = true
			hqr.Spec.Request.QueryParameters = []httpv1alpha1.RequestParameter{{Name: "page", Value: "1"}}
			hqr.Spec.Request.Options = &httpv1alpha1.RequestOptionsSpec{
				Pagination: &httpv1alpha1.PaginationSpec{
					PaginationMode:         "updateAParameterInEachRequest",
					Parameters:             []httpv1alpha1.PaginationParameter{{Type: "qs", Name: "page", Value: "={{ add .pageCount 1 }}"}},
					PaginationCompleteWhen: "responseIsEmpty",
				},
			}
			r, k8sClient := newTestReconciler(hqr)

			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			Expect(mockServer.GetRequests()).To(HaveLen(3))
			for _, id := range []string{"1", "2"} {
				_, err := getConfigMap(k8sClient, "user-cm-"+id)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(getResource(k8sClient, "paged-hqr").Status.LastOutputCount).To(Equal(2))
		})
	})

	Describe("HTTPQueryResource authentication", func() {
		It("should authenticate using basic auth credentials from a Secret", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetHandler("/secure", func(r *http.Request) MockResponse {
				user, pass, ok := r.BasicAuth()
				if !ok || user != "api-user" || pass != "s3cret" {
					return MockResponse{StatusCode: http.StatusUnauthorized, Body: `{"error": "unauthorized"}`}
				}
				return MockResponse{
					StatusCode: http.StatusOK,
					Body:       `[{"id": 1, "name": "Alice", "age": 30}]`,
					Headers:    map[string]string{"Content-Type": "application/json"},
				}
			})

			secret := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "basic-secret", Namespace: ResourceNamespace},
				Data: map[string][]byte{
					"username": []byte("api-user"),
					"password": []byte("s3cret"),
				},
			}
			hqr := newHTTPQueryResource("basic-hqr", mockServer.URL()+"/secure")
			hqr.Spec.Request.Authentication = "genericCredentialType"
			hqr.Spec.Request.GenericAuthType = "httpBasicAuth"
			hqr.Spec.Credentials = []httpv1alpha1.CredentialRef{{
				Type: "httpBasicAuth",
				Name: "basic-secret",
				Keys: map[string]string{"user": "username"},
			}}
			r, k8sClient := newTestReconciler(secret, hqr)

			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			_, err = getConfigMap(k8sClient, "user-cm-1")
			Expect(err).NotTo(HaveOccurred())
			expectCondition(getResource(k8sClient, "basic-hqr"), ConditionHTTPConnected, metav1.ConditionTrue, "Connected")
		})

		It("should authenticate using a predefined credential type", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/user/repos", http.StatusOK, `[{"id": 11, "name": "operator", "age": 2}]`)

			secret := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "github-token", Namespace: ResourceNamespace},
				Data:       map[string][]byte{"token": []byte("ghp_test")},
			}
			hqr := newHTTPQueryResource("github-hqr", mockServer.URL()+"/user/repos")
			hqr.Spec.Request.Authentication = "predefinedCredentialType"
			hqr.Spec.Request.NodeCredentialType = "githubApi"
			hqr.Spec.Credentials = []httpv1alpha1.CredentialRef{{
				Type: "githubApi",
				Name: "github-token",
				Keys: map[string]string{"accessToken": "token"},
			}}
			r, k8sClient := newTestReconciler(secret, hqr)

			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			requests := mockServer.GetRequests()
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].Headers).To(HaveKeyWithValue("Authorization", "token ghp_test"))
			_, err = getConfigMap(k8sClient, "user-cm-11")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("HTTPQueryResource error handling", func() {
		It("should mark the resource as not connected when the request fails", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/users", http.StatusServiceUnavailable, `{"message": "maintenance"}`)

			hqr := newHTTPQueryResource("failing-hqr", mockServer.URL()+"/users")
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(pollInterval))

			updated := getResource(k8sClient, "failing-hqr")
			expectCondition(updated, ConditionHTTPConnected, metav1.ConditionFalse, "RequestFailed")
			expectCondition(updated, ConditionReconciled, metav1.ConditionFalse, "RequestFailed")
			Expect(updated.Status.LastPollTime).To(BeNil())
		})

		It("should not send anything and not requeue when the request is misconfigured", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()

			hqr := newHTTPQueryResource("invalid-hqr", mockServer.URL()+"/users")
			hqr.Spec.Request.SendBody = true
			hqr.Spec.Request.Method = "POST"
			hqr.Spec.Request.SpecifyBody = "json"
			hqr.Spec.Request.JSONBody = `{"unterminated": `
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(mockServer.GetRequests()).To(BeEmpty())

			expectCondition(getResource(k8sClient, "invalid-hqr"), ConditionReconciled, metav1.ConditionFalse, "InvalidSpec")
		})

		It("should reject a non HTTP URL", func() {
			hqr := newHTTPQueryResource("ftp-hqr", "ftp://example.com/users")
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			expectCondition(getResource(k8sClient, "ftp-hqr"), ConditionReconciled, metav1.ConditionFalse, "InvalidSpec")
		})

		It("should reject an invalid poll interval", func() {
			hqr := newHTTPQueryResource("interval-hqr", "http://example.com")
			hqr.Spec.PollInterval = "often"
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			expectCondition(getResource(k8sClient, "interval-hqr"), ConditionReconciled, metav1.ConditionFalse, "InvalidSpec")
		})

		It("should reject inputs that are not JSON objects", func() {
			hqr := newHTTPQueryResource("inputs-invalid-hqr", "http://example.com")
			hqr.Spec.Inputs = []runtime.RawExtension{{Raw: []byte(`[1, 2]`)}}
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			expectCondition(getResource(k8sClient, "inputs-invalid-hqr"), ConditionReconciled, metav1.ConditionFalse, "InvalidSpec")
		})

		It("should report template errors", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()

			hqr := newHTTPQueryResource("template-hqr", mockServer.URL()+"/users")
			hqr.Spec.Template = "{{ .Item.id "
			r, k8sClient := newTestReconciler(hqr)

			result, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(mockServer.GetRequests()).To(BeEmpty())
			expectCondition(getResource(k8sClient, "template-hqr"), ConditionReconciled, metav1.ConditionFalse, "TemplateError")
		})

		It("should report records that render to invalid manifests and skip pruning", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/users", http.StatusOK, `[{"id": 1, "name": "Alice", "age": 30}]`)

			hqr := newHTTPQueryResource("render-hqr", mockServer.URL()+"/users")
			r, k8sClient := newTestReconciler(hqr)
			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			mockServer.SetJSON("/users", http.StatusOK, `[{"id": "1 2: [", "name": "Broken", "age": 0}]`)
			result, err := reconcileResource(r, hqr)
			Expect(err).To(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(pollInterval))

			_, err = getConfigMap(k8sClient, "user-cm-1")
			Expect(err).NotTo(HaveOccurred(), "resources must survive a poll with render errors")
			expectCondition(getResource(k8sClient, "render-hqr"), ConditionReconciled, metav1.ConditionFalse, "ProcessingError")
		})
	})

	Describe("HTTPQueryResource finalizer cleanup logic", func() {
		It("should delete managed resources and remove the finalizer when the CR is deleted", func() {
			mockServer := NewMockHTTPServer()
			defer mockServer.Close()
			mockServer.SetJSON("/users", http.StatusOK, `[{"id": 99, "name": "Zed", "age": 50}]`)

			hqr := newHTTPQueryResource("finalizer-hqr", mockServer.URL()+"/users")
			r, k8sClient := newTestReconciler(hqr)

			_, err := reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())
			_, err = getConfigMap(k8sClient, "user-cm-99")
			Expect(err).NotTo(HaveOccurred())

			Expect(k8sClient.Delete(ctx, getResource(k8sClient, "finalizer-hqr"))).To(Succeed())
			_, err = reconcileResource(r, hqr)
			Expect(err).NotTo(HaveOccurred())

			_, err = getConfigMap(k8sClient, "user-cm-99")
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			err = k8sClient.Get(ctx, types.NamespacedName{Name: "finalizer-hqr", Namespace: ResourceNamespace}, &httpv1alpha1.HTTPQueryResource{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("descriptor conversion", func() {
		It("should carry every request field and continueOnFail", func() {
			follow := false
			spec := &httpv1alpha1.HTTPQueryResourceSpec{
				ContinueOnFail: true,
				Request: httpv1alpha1.HTTPRequestSpec{
					NodeVersion:      2,
					Method:           "POST",
					URL:              "https://api.example.com/items",
					SendHeaders:      true,
					HeaderParameters: []httpv1alpha1.RequestParameter{{Name: "X-Trace", Value: "={{ .itemIndex }}"}},
					ResponsePath:     "data",
					Options: &httpv1alpha1.RequestOptionsSpec{
						Timeout:  5000,
						Batching: &httpv1alpha1.BatchingSpec{BatchSize: 2, BatchInterval: 100},
						Redirect: &httpv1alpha1.RedirectSpec{FollowRedirects: &follow, MaxRedirects: 3},
						Response: &httpv1alpha1.ResponseSpec{ResponseFormat: "text", OutputPropertyName: "body"},
						Pagination: &httpv1alpha1.PaginationSpec{
							PaginationMode:         "updateAParameterInEachRequest",
							PaginationCompleteWhen: "receiveSpecificStatusCodes",
							StatusCodes:            []int{200, 206},
						},
					},
				},
			}

			desc, err := descriptorFromSpec(spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(desc.ContinueOnFail).To(BeTrue())
			Expect(desc.NodeVersion).To(Equal(2))
			Expect(desc.HeaderParameters).To(HaveLen(1))
			Expect(desc.HeaderParameters[0].Value).To(Equal("={{ .itemIndex }}"))
			Expect(desc.ResponsePath).To(Equal("data"))
			Expect(desc.Options.Timeout).To(Equal(5000))
			Expect(desc.Options.Batching.Size).To(Equal(2))
			Expect(desc.Options.Batching.Interval).To(Equal(100))
			Expect(*desc.Options.Redirect.FollowRedirects).To(BeFalse())
			Expect(desc.Options.Redirect.MaxRedirects).To(Equal(3))
			Expect(string(desc.Options.Response.ResponseFormat)).To(Equal("text"))
			Expect(desc.Options.Response.OutputPropertyName).To(Equal("body"))
			Expect(desc.Options.Pagination.StatusCodes).To(Equal([]int{200, 206}))
		})

		It("should default to one empty input", func() {
			items, err := inputItems(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].JSON).To(BeEmpty())

			items, err = inputItems([]runtime.RawExtension{rawInput(map[string]any{"id": 3}), {}})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(items[0].JSON).To(HaveKeyWithValue("id", float64(3)))
			Expect(items[1].JSON).To(BeEmpty())
		})
	})
})

// MockHTTPServer provides a configurable HTTP server for testing
type MockHTTPServer struct {
	server    *httptest.Server
	responses map[string]MockResponse
	handlers  map[string]func(*http.Request) MockResponse
	requests  []MockRequest
	mu        sync.RWMutex
}

type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

type MockRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

func NewMockHTTPServer() *MockHTTPServer {
	mock := &MockHTTPServer{
		responses: make(map[string]MockResponse),
		handlers:  make(map[string]func(*http.Request) MockResponse),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handleRequest))
	return mock
}

func (m *MockHTTPServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	body := ""
	if r.Body != nil {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			body = string(bodyBytes)
		}
	}

	req := MockRequest{
		Method:  r.Method,
		URL:     r.URL.Path,
		Headers: make(map[string]string),
		Body:    body,
	}
	for k, v := range r.Header {
		if len(v) > 0 {
			req.Headers[k] = v[0]
		}
	}
	m.requests = append(m.requests, req)

	response, exists := m.responses[r.URL.Path]
	if handler, ok := m.handlers[r.URL.Path]; ok {
		response, exists = handler(r), true
	}
	if !exists {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "not found"}`))
		return
	}
	for k, v := range response.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(response.StatusCode)
	_, _ = w.Write([]byte(response.Body))
}

func (m *MockHTTPServer) SetResponse(path string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = response
}

// SetJSON serves body as application/json on path.
func (m *MockHTTPServer) SetJSON(path string, status int, body string) {
	m.SetResponse(path, MockResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})
}

func (m *MockHTTPServer) SetHandler(path string, handler func(*http.Request) MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

func (m *MockHTTPServer) GetRequests() []MockRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	requests := make([]MockRequest, len(m.requests))
	copy(requests, m.requests)
	return requests
}

func (m *MockHTTPServer) URL() string {
	return m.server.URL
}

func (m *MockHTTPServer) Close() {
	m.server.Close()
}

// Helper for pointer to bool
func ptrBool(b bool) *bool { return &b }

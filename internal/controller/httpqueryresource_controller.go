package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	httpv1alpha1 "github.com/konnektr-io/http-request-operator/api/v1alpha1"
	"github.com/konnektr-io/http-request-operator/internal/credentials"
	"github.com/konnektr-io/http-request-operator/internal/httprequest"
	"github.com/konnektr-io/http-request-operator/internal/util"
)

const (
	ManagedByLabel         = "konnektr.io/managed-by"
	ControllerName         = "httpqueryresource-controller"
	ConditionReconciled    = "Reconciled"
	ConditionHTTPConnected = "HTTPConnected"
	HTTPQueryFinalizer     = "konnektr.io/httpqueryresource-finalizer"

	maxConditionMessage = 1024
)

// HTTPQueryResourceReconciler reconciles an HTTPQueryResource object
type HTTPQueryResourceReconciler struct {
	client.Client
	Scheme *runtime.Scheme
	Log    logr.Logger

	// Executor runs the requests. It is shared between reconciles so OAuth2
	// tokens and transports are reused. A nil Executor gets a default one.
	Executor *httprequest.Executor
	// Registry holds the predefined credential types. Nil means the defaults.
	Registry  *credentials.Registry
	OwnedGVKs []schema.GroupVersionKind
}

//+kubebuilder:rbac:groups=konnektr.io,resources=httpqueryresources,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=konnektr.io,resources=httpqueryresources/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=konnektr.io,resources=httpqueryresources/finalizers,verbs=update
//+kubebuilder:rbac:groups=core,resources=secrets,verbs=get;list;watch
//+kubebuilder:rbac:groups="*",resources="*",verbs=get;list;watch;create;update;patch;delete

// Reconcile polls the HTTP endpoint described by the resource and applies one
// set of rendered resources per output record.
func (r *HTTPQueryResourceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := log.FromContext(ctx)
	r.Log = log
	log.Info("Reconciling HTTPQueryResource", "Request.Namespace", req.Namespace, "Request.Name", req.Name)

	// 1. Fetch the HTTPQueryResource instance
	hqr := &httpv1alpha1.HTTPQueryResource{}
	if err := r.Get(ctx, req.NamespacedName, hqr); err != nil {
		if apierrors.IsNotFound(err) {
			log.Info("HTTPQueryResource not found. Ignoring since object must be deleted.")
			return ctrl.Result{}, nil
		}
		log.Error(err, "Failed to get HTTPQueryResource")
		return ctrl.Result{}, err
	}

	if !hqr.DeletionTimestamp.IsZero() {
		return r.finalize(ctx, hqr)
	}

	if !controllerutil.ContainsFinalizer(hqr, HTTPQueryFinalizer) {
		controllerutil.AddFinalizer(hqr, HTTPQueryFinalizer)
		if err := r.Update(ctx, hqr); err != nil {
			log.Error(err, "Failed to add finalizer")
			return ctrl.Result{}, err
		}
	}

	if hqr.Status.Conditions == nil {
		hqr.Status.Conditions = []metav1.Condition{}
	}

	defer func() {
		hqr.Status.ObservedGeneration = hqr.Generation
		if err := r.Status().Update(ctx, hqr); err != nil {
			log.Error(err, "Failed to update HTTPQueryResource status")
		}
	}()

	// 2. Parse Poll Interval
	pollInterval, err := time.ParseDuration(hqr.Spec.PollInterval)
	if err != nil {
		log.Error(err, "Invalid pollInterval format")
		setCondition(hqr, ConditionReconciled, metav1.ConditionFalse, "InvalidSpec", fmt.Sprintf("Invalid pollInterval: %v", err))
		return ctrl.Result{}, nil
	}

	// 3. Build the request and the resource template
	desc, err := descriptorFromSpec(&hqr.Spec)
	if err != nil {
		log.Error(err, "Invalid request")
		setCondition(hqr, ConditionReconciled, metav1.ConditionFalse, "InvalidSpec", truncateError(err.Error(), maxConditionMessage))
		return ctrl.Result{}, nil
	}
	items, err := inputItems(hqr.Spec.Inputs)
	if err != nil {
		log.Error(err, "Invalid inputs")
		setCondition(hqr, ConditionReconciled, metav1.ConditionFalse, "InvalidSpec", truncateError(err.Error(), maxConditionMessage))
		return ctrl.Result{}, nil
	}
	tp, err := util.NewTemplateProcessor(hqr.Spec.Template)
	if err != nil {
		log.Error(err, "Failed to parse resource template")
		setCondition(hqr, ConditionReconciled, metav1.ConditionFalse, "TemplateError", fmt.Sprintf("Invalid template: %v", err))
		return ctrl.Result{}, nil
	}

	// 4. Execute the requests
	host := credentials.NewHost(
		credentials.NewSecretStore(r.Client, log, hqr.Namespace, hqr.Spec.Credentials),
		r.Registry,
		log,
	)
	result, err := r.executor(log).Execute(ctx, host, desc, items)
	if err != nil {
		if httprequest.IsConfigError(err) {
			log.Error(err, "Invalid request configuration")
			setCondition(hqr, ConditionReconciled, metav1.ConditionFalse, "InvalidSpec", truncateError(err.Error(), maxConditionMessage))
			return ctrl.Result{}, nil
		}
		if errors.Is(err, context.Canceled) {
			return ctrl.Result{}, err
		}
		log.Error(err, "HTTP request failed", "kind", httprequest.ErrorKind(err))
		setCondition(hqr, ConditionHTTPConnected, metav1.ConditionFalse, "RequestFailed", truncateError(err.Error(), maxConditionMessage))
		setCondition(hqr, ConditionReconciled, metav1.ConditionFalse, "RequestFailed", "Failed to query the HTTP endpoint")
		return ctrl.Result{RequeueAfter: pollInterval}, nil
	}
	setCondition(hqr, ConditionHTTPConnected, metav1.ConditionTrue, "Connected", "Successfully queried the HTTP endpoint")

	records := result.Items()
	hqr.Status.LastOutputCount = len(records)
	log.Info("HTTP requests executed successfully", "inputs", len(items), "records", len(records))

	// 5. Render records and manage resources
	resources, renderErrs := tp.ProcessOutputItems(records)
	var processingErrors []string
	for _, err := range renderErrs {
		log.Error(err, "Failed to render resource template")
		processingErrors = append(processingErrors, err.Error())
	}

	managedResourceKeys := make(map[string]bool)
	for _, obj := range resources {
		if obj.GetNamespace() == "" {
			obj.SetNamespace(hqr.Namespace)
		}
		objLabels := obj.GetLabels()
		if objLabels == nil {
			objLabels = make(map[string]string)
		}
		objLabels[ManagedByLabel] = hqr.Name
		obj.SetLabels(objLabels)
		if err := controllerutil.SetControllerReference(hqr, obj, r.Scheme); err != nil {
			log.Error(err, "Failed to set owner reference on object", "object GVK", obj.GroupVersionKind(), "object Name", obj.GetName())
			processingErrors = append(processingErrors, fmt.Sprintf("owner ref error for %s/%s: %v", obj.GetNamespace(), obj.GetName(), err))
			continue
		}
		if err := r.createOrUpdateResource(ctx, obj); err != nil {
			processingErrors = append(processingErrors, fmt.Sprintf("apply error for %s/%s: %v", obj.GetNamespace(), obj.GetName(), err))
			continue
		}
		managedResourceKeys[getObjectKey(obj)] = true
	}

	// 6. Prune resources that no record produced this time
	switch {
	case !hqr.Spec.GetPrune():
		log.Info("Pruning disabled")
	case len(renderErrs) > 0:
		log.Info("Skipping pruning, some records could not be rendered")
	default:
		if children, err := r.collectAllChildResources(ctx, hqr); err != nil {
			log.Error(err, "Failed to collect child resources")
			processingErrors = append(processingErrors, fmt.Sprintf("collect children: %v", err))
		} else {
			processingErrors = append(processingErrors, r.pruneStaleResources(ctx, hqr, managedResourceKeys, children)...)
		}
	}

	// 7. Update Status
	managedResourcesList := make([]string, 0, len(managedResourceKeys))
	for k := range managedResourceKeys {
		managedResourcesList = append(managedResourcesList, k)
	}
	sort.Strings(managedResourcesList)
	hqr.Status.ManagedResources = managedResourcesList

	if len(processingErrors) > 0 {
		errMsg := strings.Join(processingErrors, "; ")
		setCondition(hqr, ConditionReconciled, metav1.ConditionFalse, "ProcessingError", truncateError(errMsg, maxConditionMessage))
		log.Error(errors.New(errMsg), "Reconciliation failed with errors")
		return ctrl.Result{RequeueAfter: pollInterval}, fmt.Errorf("reconciliation failed: %s", errMsg)
	}

	log.Info("Reconciliation successful", "managedResourceCount", len(managedResourceKeys))
	now := metav1.Now()
	hqr.Status.LastPollTime = &now
	setCondition(hqr, ConditionReconciled, metav1.ConditionTrue, "Success", "Successfully queried the HTTP endpoint and reconciled resources")

	return ctrl.Result{RequeueAfter: pollInterval}, nil
}

// finalize deletes every managed child and then releases the finalizer.
func (r *HTTPQueryResourceReconciler) finalize(ctx context.Context, hqr *httpv1alpha1.HTTPQueryResource) (ctrl.Result, error) {
	if !controllerutil.ContainsFinalizer(hqr, HTTPQueryFinalizer) {
		return ctrl.Result{}, nil
	}
	log := r.Log
	log.Info("HTTPQueryResource is being deleted, cleaning up managed resources")

	children, err := r.collectAllChildResources(ctx, hqr)
	if err != nil {
		log.Error(err, "Failed to collect child resources for deletion cleanup")
		return ctrl.Result{}, err
	}
	for _, obj := range children {
		log.Info("Deleting managed resource due to CR deletion", "GVK", obj.GroupVersionKind(), "Namespace", obj.GetNamespace(), "Name", obj.GetName())
		if err := r.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
			log.Error(err, "Failed to delete managed resource during finalizer cleanup", "GVK", obj.GroupVersionKind(), "Namespace", obj.GetNamespace(), "Name", obj.GetName())
			return ctrl.Result{}, err
		}
	}

	controllerutil.RemoveFinalizer(hqr, HTTPQueryFinalizer)
	if err := r.Update(ctx, hqr); err != nil {
		log.Error(err, "Failed to remove finalizer after cleanup")
		return ctrl.Result{}, err
	}
	log.Info("Finalizer removed, cleanup complete")
	return ctrl.Result{}, nil
}

func (r *HTTPQueryResourceReconciler) executor(log logr.Logger) *httprequest.Executor {
	if r.Executor == nil {
		r.Executor = httprequest.NewExecutor(httprequest.WithLogger(log.WithName("executor")))
	}
	return r.Executor
}

// pruneStaleResources deletes children that are not in currentKeys and returns
// the failed deletions.
func (r *HTTPQueryResourceReconciler) pruneStaleResources(ctx context.Context, hqr *httpv1alpha1.HTTPQueryResource, currentKeys map[string]bool, children []*unstructured.Unstructured) []string {
	log := r.Log.WithValues("HTTPQueryResource", types.NamespacedName{Name: hqr.Name, Namespace: hqr.Namespace})
	var errs []string
	for _, item := range children {
		objKey := getObjectKey(item)
		if currentKeys[objKey] {
			continue
		}
		log.Info("Pruning stale resource", "GVK", item.GroupVersionKind(), "Namespace", item.GetNamespace(), "Name", item.GetName())
		if err := r.Delete(ctx, item); err != nil && !apierrors.IsNotFound(err) {
			log.Error(err, "Failed to prune resource", "GVK", item.GroupVersionKind(), "Namespace", item.GetNamespace(), "Name", item.GetName())
			errs = append(errs, fmt.Sprintf("delete %s: %v", objKey, err))
		}
	}
	return errs
}

// collectAllChildResources lists the resources labelled as managed by hqr for every owned GVK.
func (r *HTTPQueryResourceReconciler) collectAllChildResources(ctx context.Context, hqr *httpv1alpha1.HTTPQueryResource) ([]*unstructured.Unstructured, error) {
	log := r.Log.WithValues("HTTPQueryResource", types.NamespacedName{Name: hqr.Name, Namespace: hqr.Namespace})
	selector := labels.SelectorFromSet(labels.Set{ManagedByLabel: hqr.Name})

	var allChildren []*unstructured.Unstructured
	for _, gvk := range r.OwnedGVKs {
		list := &unstructured.UnstructuredList{}
		list.SetGroupVersionKind(gvk.GroupVersion().WithKind(gvk.Kind + "List"))
		err := r.List(ctx, list, client.InNamespace(hqr.Namespace), client.MatchingLabelsSelector{Selector: selector})
		if err != nil {
			if meta.IsNoMatchError(err) || runtime.IsNotRegisteredError(err) {
				log.V(1).Info("Skipping GVK for collection, not registered in scheme", "GVK", gvk)
				continue
			}
			log.Error(err, "Failed to list resources for collection", "GVK", gvk)
			return nil, err
		}
		for i := range list.Items {
			item := &list.Items[i]
			item.SetGroupVersionKind(gvk)
			allChildren = append(allChildren, item)
		}
	}
	return allChildren, nil
}

// createOrUpdateResource creates obj or updates the existing object when its
// content, labels or annotations differ.
func (r *HTTPQueryResourceReconciler) createOrUpdateResource(ctx context.Context, obj *unstructured.Unstructured) error {
	log := r.Log.WithValues("object", getObjectKey(obj))
	existing := &unstructured.Unstructured{}
	existing.SetGroupVersionKind(obj.GroupVersionKind())

	err := r.Get(ctx, client.ObjectKeyFromObject(obj), existing)
	if err != nil {
		if !apierrors.IsNotFound(err) {
			log.Error(err, "Failed to get existing resource")
			return err
		}
		log.Info("Creating new resource")
		if err := r.Create(ctx, obj, client.FieldOwner(ControllerName)); err != nil {
			log.Error(err, "Failed to create resource")
			return err
		}
		return nil
	}

	obj.SetResourceVersion(existing.GetResourceVersion())
	if existing.GetKind() == "Service" {
		// the API server assigns clusterIP; keep it so updates are not rejected
		if clusterIP, found, _ := unstructured.NestedString(existing.Object, "spec", "clusterIP"); found && clusterIP != "" && clusterIP != "None" {
			if _, objHasIP, _ := unstructured.NestedString(obj.Object, "spec", "clusterIP"); !objHasIP {
				if err := unstructured.SetNestedField(obj.Object, clusterIP, "spec", "clusterIP"); err != nil {
					return err
				}
			}
		}
	}

	if equality.Semantic.DeepEqual(content(obj), content(existing)) &&
		equality.Semantic.DeepEqual(obj.GetLabels(), existing.GetLabels()) &&
		equality.Semantic.DeepEqual(obj.GetAnnotations(), existing.GetAnnotations()) {
		log.V(1).Info("Resource is already up-to-date")
		return nil
	}

	log.Info("Updating existing resource")
	if err := r.Update(ctx, obj, client.FieldOwner(ControllerName)); err != nil {
		log.Error(err, "Failed to update resource")
		return err
	}
	return nil
}

// content is everything but metadata and status.
func content(obj *unstructured.Unstructured) map[string]any {
	out := make(map[string]any, len(obj.Object))
	for k, v := range obj.Object {
		if k == "metadata" || k == "status" {
			continue
		}
		out[k] = v
	}
	return out
}

// getObjectKey creates a unique string identifier for a Kubernetes object.
func getObjectKey(obj client.Object) string {
	gvk := obj.GetObjectKind().GroupVersionKind()
	return fmt.Sprintf("%s/%s/%s/%s", gvk.Group, gvk.Kind, obj.GetNamespace(), obj.GetName())
}

func setCondition(hqr *httpv1alpha1.HTTPQueryResource, typeString string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&hqr.Status.Conditions, metav1.Condition{
		Type:               typeString,
		Status:             status,
		ObservedGeneration: hqr.Generation,
		LastTransitionTime: metav1.Now(),
		Reason:             reason,
		Message:            message,
	})
}

// truncateError ensures error messages fit within Kubernetes status field limits.
func truncateError(msg string, maxLen int) string {
	if len(msg) > maxLen {
		return msg[:maxLen-3] + "..."
	}
	return msg
}

// SetupWithManager sets up the controller with the Manager.
func (r *HTTPQueryResourceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return r.SetupWithManagerAndGVKs(mgr, r.OwnedGVKs)
}

// SetupWithManagerAndGVKs sets up the controller with the Manager and watches
// the given GVKs as owned resources. Only spec changes of the resource itself
// trigger a poll; deleted children are recreated right away.
func (r *HTTPQueryResourceReconciler) SetupWithManagerAndGVKs(mgr ctrl.Manager, ownedGVKs []schema.GroupVersionKind) error {
	r.OwnedGVKs = ownedGVKs
	controllerBuilder := ctrl.NewControllerManagedBy(mgr).
		For(&httpv1alpha1.HTTPQueryResource{}, builder.WithPredicates(
			predicate.Or[client.Object](predicate.GenerationChangedPredicate{}, deletingPredicate()),
		))

	for _, gvk := range ownedGVKs {
		u := &unstructured.Unstructured{}
		u.SetGroupVersionKind(gvk)
		controllerBuilder = controllerBuilder.Owns(u, builder.WithPredicates(childDeletedPredicate()))
	}

	return controllerBuilder.Complete(r)
}

func deletingPredicate() predicate.Predicate {
	return predicate.Funcs{
		UpdateFunc: func(e event.UpdateEvent) bool {
			return !e.ObjectNew.GetDeletionTimestamp().IsZero()
		},
	}
}

func childDeletedPredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc:  func(e event.CreateEvent) bool { return false },
		UpdateFunc:  func(e event.UpdateEvent) bool { return false },
		DeleteFunc:  func(e event.DeleteEvent) bool { return true },
		GenericFunc: func(e event.GenericEvent) bool { return false },
	}
}

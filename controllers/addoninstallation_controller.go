package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	kilnv1alpha1 "github.com/bayleafwalker/kiln/api/v1alpha1"
	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/graph"
	"github.com/bayleafwalker/kiln/internal/repository"
	"github.com/bayleafwalker/kiln/internal/resolver"
)

const (
	controllerAddonInstallation = "AddonInstallation"

	// failedRequeueAfter is the retry delay after a failed resolution.
	failedRequeueAfter = 5 * time.Minute
)

// AddonInstallationReconciler resolves the addon graph of an AddonInstallation and
// records it, with an install order, in the status. It never starts addons; that is
// left to the lifecycle engine consuming the status.
//
// RBAC:
// +kubebuilder:rbac:groups=addons.kiln.dev,resources=addoninstallations,verbs=get;list;watch
// +kubebuilder:rbac:groups=addons.kiln.dev,resources=addoninstallations/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch;update
type AddonInstallationReconciler struct {
	client.Client
	Scheme     *runtime.Scheme
	Repository repository.Repository
	// Resolver is used for installations that do not override the classifier. When
	// nil, one is built from Repository and ResolverOptions.
	Resolver        resolver.Resolver
	ResolverOptions resolver.Options
	Recorder        record.EventRecorder
}

func (r *AddonInstallationReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	kilnControllerReconcileTotal.WithLabelValues(controllerAddonInstallation).Inc()

	logger := log.FromContext(ctx).WithValues(
		"controller", controllerAddonInstallation,
		"namespace", req.Namespace,
		"installation", req.Name,
	)

	var inst kilnv1alpha1.AddonInstallation
	if err := r.Get(ctx, req.NamespacedName, &inst); err != nil {
		if client.IgnoreNotFound(err) == nil {
			addonInstallationResolvedAddons.DeleteLabelValues(req.Namespace, req.Name)
			return ctrl.Result{}, nil
		}
		kilnControllerReconcileErrorTotal.WithLabelValues(controllerAddonInstallation).Inc()
		return ctrl.Result{}, err
	}
	logger = logger.WithValues("addon", inst.Spec.Addon)

	if inst.Status.ObservedGeneration == inst.Generation && inst.Status.Phase == kilnv1alpha1.AddonInstallationPhaseResolved {
		return ctrl.Result{}, nil
	}

	rootID, err := addons.ParseID(inst.Spec.Addon)
	if err != nil {
		logger.Info("invalid addon coordinate", "error", err.Error())
		r.recordEventf(&inst, corev1.EventTypeWarning, ReasonInvalidAddon, "Invalid addon %q: %v", inst.Spec.Addon, err)
		return ctrl.Result{}, r.patchFailed(ctx, &inst, ReasonInvalidAddon, err)
	}

	start := time.Now()
	resolved, err := r.resolve(ctx, &inst, rootID)
	addonInstallationResolutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		reason := ReasonResolutionFailed
		if errors.Is(err, resolver.ErrCycle) {
			reason = ReasonCycleDetected
		}
		logger.Error(err, "failed to resolve addon graph")
		r.recordEventf(&inst, corev1.EventTypeWarning, reason, "Failed to resolve %s: %v", rootID, err)
		kilnControllerReconcileErrorTotal.WithLabelValues(controllerAddonInstallation).Inc()
		if perr := r.patchFailed(ctx, &inst, reason, err); perr != nil {
			return ctrl.Result{}, perr
		}
		return ctrl.Result{RequeueAfter: failedRequeueAfter}, nil
	}

	before := inst.DeepCopy()
	inst.Status.ObservedGeneration = inst.Generation
	inst.Status.Phase = kilnv1alpha1.AddonInstallationPhaseResolved
	inst.Status.ResolvedAddons = resolved.addons
	inst.Status.InstallOrder = resolved.order
	setInstallationCondition(&inst, metav1.Condition{
		Type:    AddonInstallationConditionResolved,
		Status:  metav1.ConditionTrue,
		Reason:  ReasonResolved,
		Message: resolvedMessage(len(resolved.order), rootID.String()),
	})
	if err := r.Status().Patch(ctx, &inst, client.MergeFrom(before)); err != nil {
		kilnControllerReconcileErrorTotal.WithLabelValues(controllerAddonInstallation).Inc()
		return ctrl.Result{}, err
	}
	addonInstallationResolvedAddons.WithLabelValues(req.Namespace, req.Name).Set(float64(len(resolved.order)))

	logger.Info("resolved addon graph", "addons", len(resolved.order))
	r.recordEventf(&inst, corev1.EventTypeNormal, ReasonResolved, "Resolved %s with %d addons", rootID, len(resolved.order))
	return ctrl.Result{}, nil
}

type resolution struct {
	addons []kilnv1alpha1.ResolvedAddon
	order  []string
}

func (r *AddonInstallationReconciler) resolve(ctx context.Context, inst *kilnv1alpha1.AddonInstallation, rootID addons.ID) (*resolution, error) {
	res, err := r.resolverFor(ctx, inst.Spec.Classifier)
	if err != nil {
		return nil, err
	}
	root, err := res.ResolveGraph(ctx, rootID)
	if err != nil {
		return nil, err
	}

	nodes := make(map[addons.ID]*resolver.Info)
	_ = root.Walk(func(n *resolver.Info) error {
		nodes[n.ID()] = n
		return nil
	})

	g := graph.FromInfo(root)
	order, err := g.InstallOrder()
	if err != nil {
		return nil, err
	}

	out := &resolution{order: make([]string, 0, len(order))}
	for _, id := range order {
		n := nodes[id]
		files, err := n.Resources()
		if err != nil {
			return nil, fmt.Errorf("resources of %s: %w", id, err)
		}
		out.order = append(out.order, id.String())
		out.addons = append(out.addons, kilnv1alpha1.ResolvedAddon{
			ID:        id.String(),
			Required:  idStrings(n.RequiredIDs()),
			Optional:  idStrings(n.OptionalIDs()),
			Exported:  idStrings(g.Exported(id)),
			Resources: files,
		})
	}
	return out, nil
}

func (r *AddonInstallationReconciler) resolverFor(ctx context.Context, classifier string) (resolver.Resolver, error) {
	if classifier == "" && r.Resolver != nil {
		return r.Resolver, nil
	}
	if r.Repository == nil {
		return nil, errors.New("no addon repository configured")
	}
	opts := r.ResolverOptions
	opts.Repository = r.Repository
	opts.Logger = log.FromContext(ctx).WithName("resolver")
	if classifier != "" {
		opts.Classifier = classifier
	}
	return resolver.NewDefault(opts), nil
}

func (r *AddonInstallationReconciler) patchFailed(ctx context.Context, inst *kilnv1alpha1.AddonInstallation, reason string, cause error) error {
	before := inst.DeepCopy()
	inst.Status.ObservedGeneration = inst.Generation
	inst.Status.Phase = kilnv1alpha1.AddonInstallationPhaseFailed
	inst.Status.ResolvedAddons = nil
	inst.Status.InstallOrder = nil
	setInstallationCondition(inst, metav1.Condition{
		Type:    AddonInstallationConditionResolved,
		Status:  metav1.ConditionFalse,
		Reason:  reason,
		Message: truncateMessage(cause.Error()),
	})
	return r.Status().Patch(ctx, inst, client.MergeFrom(before))
}

func (r *AddonInstallationReconciler) recordEventf(obj client.Object, eventType, reason, messageFmt string, args ...any) {
	if r.Recorder == nil || obj == nil {
		return
	}
	r.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

func (r *AddonInstallationReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&kilnv1alpha1.AddonInstallation{}).
		Complete(r)
}

func idStrings(ids []addons.ID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

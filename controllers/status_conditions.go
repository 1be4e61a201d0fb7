package controllers

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kilnv1alpha1 "github.com/bayleafwalker/kiln/api/v1alpha1"
)

const (
	AddonInstallationConditionResolved = "Resolved"

	ReasonResolved         = "Resolved"
	ReasonInvalidAddon     = "InvalidAddon"
	ReasonResolutionFailed = "ResolutionFailed"
	ReasonCycleDetected    = "CycleDetected"
)

func setInstallationCondition(inst *kilnv1alpha1.AddonInstallation, condition metav1.Condition) {
	if inst == nil {
		return
	}
	condition.ObservedGeneration = inst.Generation
	meta.SetStatusCondition(&inst.Status.Conditions, condition)
}

func resolvedMessage(addonCount int, root string) string {
	if addonCount <= 1 {
		return fmt.Sprintf("%s has no addon dependencies", root)
	}
	return fmt.Sprintf("%s resolved with %d addons", root, addonCount)
}

// truncateMessage keeps condition messages bounded.
func truncateMessage(msg string) string {
	const max = 512
	msg = strings.TrimSpace(msg)
	if len(msg) <= max {
		return msg
	}
	return msg[:max-3] + "..."
}

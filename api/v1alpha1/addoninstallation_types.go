package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type AddonInstallationPhase string

const (
	AddonInstallationPhasePending  AddonInstallationPhase = "Pending"
	AddonInstallationPhaseResolved AddonInstallationPhase = "Resolved"
	AddonInstallationPhaseFailed   AddonInstallationPhase = "Failed"
)

// AddonInstallation asks for an addon and its dependency graph to be resolved against
// the operator's repository. The result is the hand-off to the lifecycle engine.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=ai
// +kubebuilder:printcolumn:name="Addon",type=string,JSONPath=`.spec.addon`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type AddonInstallation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   AddonInstallationSpec   `json:"spec"`
	Status AddonInstallationStatus `json:"status,omitempty"`
}

type AddonInstallationSpec struct {
	// Addon is the root coordinate, "name:version".
	// +kubebuilder:validation:MinLength=3
	Addon string `json:"addon"`

	// Classifier overrides the addon classifier of the repository.
	// +optional
	Classifier string `json:"classifier,omitempty"`
}

// ResolvedAddon is one node of the resolved graph.
type ResolvedAddon struct {
	ID        string   `json:"id"`
	Required  []string `json:"required,omitempty"`
	Optional  []string `json:"optional,omitempty"`
	Exported  []string `json:"exported,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

type AddonInstallationStatus struct {
	ObservedGeneration int64                  `json:"observedGeneration,omitempty"`
	Phase              AddonInstallationPhase `json:"phase,omitempty"`
	ResolvedAddons     []ResolvedAddon        `json:"resolvedAddons,omitempty"`
	// InstallOrder lists coordinates with dependencies first.
	InstallOrder []string           `json:"installOrder,omitempty"`
	Conditions   []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
type AddonInstallationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []AddonInstallation `json:"items"`
}

func init() {
	SchemeBuilder.Register(&AddonInstallation{}, &AddonInstallationList{})
}

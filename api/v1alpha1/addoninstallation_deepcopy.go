package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *AddonInstallation) DeepCopyInto(out *AddonInstallation) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	out.Spec = in.Spec
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new AddonInstallation.
func (in *AddonInstallation) DeepCopy() *AddonInstallation {
	if in == nil {
		return nil
	}
	out := new(AddonInstallation)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *AddonInstallation) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *AddonInstallationList) DeepCopyInto(out *AddonInstallationList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]AddonInstallation, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new AddonInstallationList.
func (in *AddonInstallationList) DeepCopy() *AddonInstallationList {
	if in == nil {
		return nil
	}
	out := new(AddonInstallationList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *AddonInstallationList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ResolvedAddon) DeepCopyInto(out *ResolvedAddon) {
	*out = *in
	out.Required = copyStrings(in.Required)
	out.Optional = copyStrings(in.Optional)
	out.Exported = copyStrings(in.Exported)
	out.Resources = copyStrings(in.Resources)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *AddonInstallationStatus) DeepCopyInto(out *AddonInstallationStatus) {
	*out = *in
	if in.ResolvedAddons != nil {
		out.ResolvedAddons = make([]ResolvedAddon, len(in.ResolvedAddons))
		for i := range in.ResolvedAddons {
			in.ResolvedAddons[i].DeepCopyInto(&out.ResolvedAddons[i])
		}
	}
	out.InstallOrder = copyStrings(in.InstallOrder)
	if in.Conditions != nil {
		out.Conditions = make([]metav1.Condition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&out.Conditions[i])
		}
	}
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
